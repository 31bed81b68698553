// Package fixture enumerates golden test cases on disk and turns their JSON
// fixtures into JSON-RPC requests.
package fixture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rpcgolden/internal/jsonrpc"
)

// Kind is the category of a case; it decides which fixtures are read and
// which RPC method is called.
type Kind string

const (
	KindExecute Kind = "execute"
	KindImplies Kind = "implies"
)

const (
	DefinitionFile = "definition.kore"
	ParamsFile     = "params.json"
	StateFile      = "state.json"
	AntecedentFile = "antecedent.json"
	ConsequentFile = "consequent.json"
	GoldenFile     = "response.golden"
)

// Case is one fixture directory, loaded and ready to send.
type Case struct {
	Name           string                     `json:"name"`
	Kind           Kind                       `json:"kind"`
	Dir            string                     `json:"dir"`
	DefinitionPath string                     `json:"definition_path"`
	GoldenPath     string                     `json:"golden_path"`
	Method         string                     `json:"method"`
	Params         map[string]json.RawMessage `json:"-"`
}

// Request returns the encoded JSON-RPC request for the case.
func (c Case) Request() ([]byte, error) {
	return jsonrpc.EncodeRequest(c.Method, c.Params, jsonrpc.DefaultRequestID)
}

// ID identifies the case across kinds, e.g. "execute/branching".
func (c Case) ID() string {
	return string(c.Kind) + "/" + c.Name
}

// HasGolden reports whether the golden file exists.
func (c Case) HasGolden() bool {
	_, err := os.Stat(c.GoldenPath)
	return err == nil
}

// Loader discovers cases according to its settings.
type Loader struct {
	// ExecuteDir holds one subdirectory per execute case.
	ExecuteDir string
	// ImpliesEnabled switches on the implies cases.
	ImpliesEnabled bool
	// ImpliesDir holds one subdirectory per implies case.
	ImpliesDir string
	// ImpliesDefinition is the definition shared by all implies cases.
	ImpliesDefinition string
	// Names restricts the result to these case names; empty keeps all.
	Names []string
}

// Load returns every selected case, execute cases first. Any fixture error
// aborts loading so that no server is started against a broken tree.
func (l Loader) Load() ([]Case, error) {
	cases, err := LoadExecuteCases(l.ExecuteDir)
	if err != nil {
		return nil, err
	}

	if l.ImpliesEnabled {
		implies, err := LoadImpliesCases(l.ImpliesDir, l.ImpliesDefinition)
		if err != nil {
			return nil, err
		}
		cases = append(cases, implies...)
	}

	return Filter(cases, l.Names)
}

// LoadExecuteCases loads every subdirectory of dir as an execute case: the
// state fixture is merged into the params fixture under "state".
func LoadExecuteCases(dir string) ([]Case, error) {
	names, err := caseDirs(dir)
	if err != nil {
		return nil, err
	}

	cases := make([]Case, 0, len(names))
	for _, name := range names {
		caseDir := filepath.Join(dir, name)

		params, err := readObject(filepath.Join(caseDir, ParamsFile))
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", name, err)
		}
		state, err := readRaw(filepath.Join(caseDir, StateFile))
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", name, err)
		}
		params["state"] = state

		cases = append(cases, Case{
			Name:           name,
			Kind:           KindExecute,
			Dir:            caseDir,
			DefinitionPath: filepath.Join(caseDir, DefinitionFile),
			GoldenPath:     filepath.Join(caseDir, GoldenFile),
			Method:         string(KindExecute),
			Params:         params,
		})
	}

	return cases, nil
}

// LoadImpliesCases loads every subdirectory of dir as an implies case. Each
// case sends its antecedent and consequent against the shared definition.
func LoadImpliesCases(dir, definition string) ([]Case, error) {
	names, err := caseDirs(dir)
	if err != nil {
		return nil, err
	}

	cases := make([]Case, 0, len(names))
	for _, name := range names {
		caseDir := filepath.Join(dir, name)

		antecedent, err := readRaw(filepath.Join(caseDir, AntecedentFile))
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", name, err)
		}
		consequent, err := readRaw(filepath.Join(caseDir, ConsequentFile))
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", name, err)
		}

		cases = append(cases, Case{
			Name:           name,
			Kind:           KindImplies,
			Dir:            caseDir,
			DefinitionPath: definition,
			GoldenPath:     filepath.Join(caseDir, GoldenFile),
			Method:         string(KindImplies),
			Params: map[string]json.RawMessage{
				"antecedent": antecedent,
				"consequent": consequent,
			},
		})
	}

	return cases, nil
}

// Filter keeps the cases whose name is in names. Every name must match at
// least one case.
func Filter(cases []Case, names []string) ([]Case, error) {
	if len(names) == 0 {
		return cases, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = false
	}

	var filtered []Case
	for _, c := range cases {
		if _, ok := wanted[c.Name]; ok {
			wanted[c.Name] = true
			filtered = append(filtered, c)
		}
	}

	var unknown []string
	for n, seen := range wanted {
		if !seen {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown case(s): %s", strings.Join(unknown, ", "))
	}

	return filtered, nil
}

// caseDirs lists the subdirectories of dir in lexical order.
func caseDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink != 0 {
			// Symlinked case directories count; dangling links are an error
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("case %s: %w", e.Name(), err)
			}
			if info.IsDir() {
				names = append(names, e.Name())
			}
			continue
		}
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// readRaw reads a JSON document and checks that it parses.
func readRaw(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("malformed JSON in %s", path)
	}
	return json.RawMessage(data), nil
}

// readObject reads a JSON object, keeping each member's raw encoding.
func readObject(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("malformed JSON object in %s: %w", path, err)
	}
	if obj == nil {
		// "null" decodes without error
		return nil, fmt.Errorf("malformed JSON object in %s: got null", path)
	}
	return obj, nil
}
