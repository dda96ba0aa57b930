package palette

import "testing"

func TestForPlayerSubstitutesRamps(t *testing.T) {
	base := Default()
	p, err := ForPlayer(base, [PlayerSlots]uint8{4, 2, 1})
	if err != nil {
		t.Fatalf("for player: %v", err)
	}
	if p == base {
		t.Fatalf("expected an independent copy")
	}
	red := Ramp(4)
	if p.Colors[2*RampLength+RampLength-1] != red[RampLength-1] {
		t.Fatalf("expected primary color in slot 2, got %+v", p.Colors[2*RampLength+RampLength-1])
	}
	blue := Ramp(1)
	if p.Colors[0] != blue[0] || p.Colors[RampLength-1] != blue[RampLength-1] {
		t.Fatalf("expected tertiary color in slot 0")
	}
	if base.Colors[RampLength-1] == blue[RampLength-1] {
		t.Fatalf("base palette must not be modified")
	}
	if p.Colors[100] != base.Colors[100] {
		t.Fatalf("non-player entries must be preserved")
	}
}

func TestSetPlayerColorRejectsOutOfRange(t *testing.T) {
	p := Default()
	if err := p.SetPlayerColor(ColorCount, 0); err == nil {
		t.Fatalf("expected color range error")
	}
	if err := p.SetPlayerColor(1, PlayerSlots); err == nil {
		t.Fatalf("expected slot range error")
	}
	var nilPalette *Palette
	if err := nilPalette.SetPlayerColor(1, 0); err == nil {
		t.Fatalf("expected nil palette error")
	}
}

func TestEqual(t *testing.T) {
	a := Default()
	b := a.Copy()
	if !a.Equal(b) {
		t.Fatalf("expected copies to be equal")
	}
	b.Colors[10] = Color{R: 1}
	if a.Equal(b) {
		t.Fatalf("expected modified copy to differ")
	}
	var nilPalette *Palette
	if !nilPalette.Equal(nil) || nilPalette.Equal(a) {
		t.Fatalf("unexpected nil comparison result")
	}
}
