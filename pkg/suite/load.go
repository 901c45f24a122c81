package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// suiteFile is the external boundary format for suites, shared with the
// suite store and template tooling.
type suiteFile struct {
	SuiteName    string            `json:"suite_name" yaml:"suite_name"`
	Expectations []expectationFile `json:"expectations" yaml:"expectations"`
}

type expectationFile struct {
	ExpectationType string         `json:"expectation_type" yaml:"expectation_type"`
	Kwargs          map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
	Query           string         `json:"query,omitempty" yaml:"query,omitempty"`
	Expected        string         `json:"expected_result_type,omitempty" yaml:"expected_result_type,omitempty"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// Load reads a suite definition from a .json, .yaml or .yml file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported suite file extension %q", filepath.Ext(path))
	}
}

// ParseJSON parses the JSON boundary format.
func ParseJSON(data []byte) (*Suite, error) {
	var sf suiteFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	return fromFile(&sf)
}

// ParseYAML parses the YAML rendering of the same format.
func ParseYAML(data []byte) (*Suite, error) {
	var sf suiteFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	return fromFile(&sf)
}

func fromFile(sf *suiteFile) (*Suite, error) {
	s := &Suite{Name: sf.SuiteName, Specs: make([]Spec, 0, len(sf.Expectations))}

	for i, ef := range sf.Expectations {
		kind, implied, err := ParseKind(ef.ExpectationType)
		if err != nil {
			return nil, fmt.Errorf("expectation %d: %w", i, err)
		}

		spec := Spec{
			Kind:        kind,
			Query:       ef.Query,
			Expected:    ExpectedResultType(ef.Expected),
			Description: ef.Description,
			Kwargs:      map[string]any{},
		}

		for k, v := range implied {
			spec.Kwargs[k] = v
		}
		for k, v := range ef.Kwargs {
			spec.Kwargs[k] = v
		}

		// Older exports nest the custom SQL fields inside kwargs.
		if kind == KindCustomSQL {
			if q, ok := spec.Kwargs["query"].(string); ok && spec.Query == "" {
				spec.Query = q
			}
			if e, ok := spec.Kwargs["expected_result_type"].(string); ok && spec.Expected == "" {
				spec.Expected = ExpectedResultType(e)
			}
			if d, ok := spec.Kwargs["description"].(string); ok && spec.Description == "" {
				spec.Description = d
			}
			if n, ok := spec.Kwargs["name"].(string); ok && spec.Description == "" {
				spec.Description = n
			}
			delete(spec.Kwargs, "query")
			delete(spec.Kwargs, "expected_result_type")
		}

		if col, ok := spec.Kwargs["column"].(string); ok {
			spec.Column = col
			delete(spec.Kwargs, "column")
		}

		s.Specs = append(s.Specs, spec)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ExportJSON serializes the suite back into the boundary format.
func ExportJSON(s *Suite) ([]byte, error) {
	sf := suiteFile{SuiteName: s.Name, Expectations: make([]expectationFile, 0, len(s.Specs))}
	for i := range s.Specs {
		spec := &s.Specs[i]

		kwargs := make(map[string]any, len(spec.Kwargs)+1)
		for k, v := range spec.Kwargs {
			kwargs[k] = v
		}
		if spec.Column != "" {
			kwargs["column"] = spec.Column
		}
		if len(kwargs) == 0 {
			kwargs = nil
		}

		sf.Expectations = append(sf.Expectations, expectationFile{
			ExpectationType: string(spec.Kind),
			Kwargs:          kwargs,
			Query:           spec.Query,
			Expected:        string(spec.Expected),
			Description:     spec.Description,
		})
	}
	return json.MarshalIndent(&sf, "", "  ")
}
