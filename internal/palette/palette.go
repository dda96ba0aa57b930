// Package palette holds the indexed color tables HARs are drawn with and the
// per-player color substitution applied at match start.
package palette

import "fmt"

const (
	// Size is the number of entries in a palette.
	Size = 256
	// RampLength is the number of shades in one player color ramp.
	RampLength = 16
	// PlayerSlots is the number of recolorable ramps per HAR.
	PlayerSlots = 3
	// ColorCount is the number of selectable player colors.
	ColorCount = 16
)

// Color is one palette entry.
type Color struct {
	R, G, B uint8
}

// Palette is an indexed color table. Entries [0, PlayerSlots*RampLength) are
// the recolorable player ramps.
type Palette struct {
	Colors [Size]Color
}

// Copy returns an independent copy of p.
func (p *Palette) Copy() *Palette {
	if p == nil {
		return nil
	}
	cloned := *p
	return &cloned
}

// SetPlayerColor overwrites ramp slot with the shades of a selectable color.
func (p *Palette) SetPlayerColor(color uint8, slot int) error {
	if p == nil {
		return fmt.Errorf("palette is nil")
	}
	if int(color) >= ColorCount {
		return fmt.Errorf("player color %d out of range", color)
	}
	if slot < 0 || slot >= PlayerSlots {
		return fmt.Errorf("player color slot %d out of range", slot)
	}
	ramp := Ramp(color)
	copy(p.Colors[slot*RampLength:(slot+1)*RampLength], ramp[:])
	return nil
}

// Equal reports whether both palettes hold identical entries.
func (p *Palette) Equal(other *Palette) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Colors == other.Colors
}

var baseHues = [ColorCount]Color{
	{0, 0, 0}, {0, 0, 170}, {0, 170, 0}, {0, 170, 170},
	{170, 0, 0}, {170, 0, 170}, {170, 85, 0}, {170, 170, 170},
	{85, 85, 85}, {85, 85, 255}, {85, 255, 85}, {85, 255, 255},
	{255, 85, 85}, {255, 85, 255}, {255, 255, 85}, {255, 255, 255},
}

// Ramp returns the dark-to-light shades for a selectable color.
func Ramp(color uint8) [RampLength]Color {
	var ramp [RampLength]Color
	hue := baseHues[int(color)%ColorCount]
	for i := 0; i < RampLength; i++ {
		ramp[i] = Color{
			R: uint8(int(hue.R) * (i + 1) / RampLength),
			G: uint8(int(hue.G) * (i + 1) / RampLength),
			B: uint8(int(hue.B) * (i + 1) / RampLength),
		}
	}
	return ramp
}

// Default builds the arena base palette: neutral player ramps followed by a
// grayscale body.
func Default() *Palette {
	var p Palette
	for slot := 0; slot < PlayerSlots; slot++ {
		ramp := Ramp(7)
		copy(p.Colors[slot*RampLength:(slot+1)*RampLength], ramp[:])
	}
	for i := PlayerSlots * RampLength; i < Size; i++ {
		v := uint8(i)
		p.Colors[i] = Color{R: v, G: v, B: v}
	}
	return &p
}

// ForPlayer copies base and applies the three player colors. Colors are
// ordered primary, secondary, tertiary and fill slots 2, 1, 0 respectively.
func ForPlayer(base *Palette, colors [PlayerSlots]uint8) (*Palette, error) {
	if base == nil {
		return nil, fmt.Errorf("base palette is nil")
	}
	p := base.Copy()
	for i, color := range colors {
		if err := p.SetPlayerColor(color, PlayerSlots-1-i); err != nil {
			return nil, err
		}
	}
	return p, nil
}
