package main

import (
	"strings"
	"testing"
)

func TestCheckFlagsCoreImportingTransport(t *testing.T) {
	input := `{"ImportPath":"duel-arena/server/internal/rollback","Imports":["context","duel-arena/server/internal/sim","duel-arena/server/internal/net/ws"]}
{"ImportPath":"duel-arena/server/internal/arena","Imports":["duel-arena/server/internal/results"]}
{"ImportPath":"duel-arena/server/internal/simulator","Imports":["net/http"]}`

	packages, err := decodePackages(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(packages) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(packages))
	}

	violations := check(packages, rules)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", violations)
	}
	want := "duel-arena/server/internal/rollback -> duel-arena/server/internal/net/ws"
	if violations[0] != want {
		t.Fatalf("expected %q, got %q", want, violations[0])
	}
}

func TestUnderAnyMatchesWholeSegments(t *testing.T) {
	if underAny("net/http/httptest", []string{"net/http"}) != true {
		t.Fatalf("expected subpackage match")
	}
	if underAny("duel-arena/server/internal/simulator", []string{"duel-arena/server/internal/sim"}) {
		t.Fatalf("prefix must stop at a path boundary")
	}
}
