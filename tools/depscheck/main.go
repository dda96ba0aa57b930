package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "duel-arena/server"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under From from importing anything under a Deny
// prefix.
type rule struct {
	From []string
	Deny []string
}

// The deterministic core must stay replayable: no sockets, no storage and no
// process wiring below the arena.
var rules = []rule{
	{
		From: []string{
			modulePath + "/internal/sim",
			modulePath + "/internal/palette",
			modulePath + "/internal/snapshot",
			modulePath + "/internal/input",
			modulePath + "/internal/score",
			modulePath + "/internal/lifecycle",
			modulePath + "/internal/rollback",
		},
		Deny: []string{
			modulePath + "/internal/net",
			modulePath + "/internal/app",
			modulePath + "/internal/results",
			modulePath + "/internal/config",
			"github.com/gorilla/websocket",
			"modernc.org/sqlite",
			"net/http",
		},
	},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	packages, err := decodePackages(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	violations := check(packages, rules)
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var packages []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return packages, nil
			}
			return nil, err
		}
		packages = append(packages, pkg)
	}
}

func check(packages []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range packages {
		for _, r := range rules {
			if !underAny(pkg.ImportPath, r.From) {
				continue
			}
			for _, imp := range pkg.Imports {
				if underAny(imp, r.Deny) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

func underAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
