package bench

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sunshine/internal/errs"
)

// Suite is a file of plans.
type Suite struct {
	Plans []Plan `yaml:"plans" json:"plans"`
}

// LoadSuite reads plans from a .yaml, .yml or .cue file.
//
// YAML suites reject unknown fields. CUE suites are evaluated first, so
// plans may share definitions. Every plan is validated and plan names must
// be unique.
func LoadSuite(path string) ([]Plan, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Newf(errs.Precondition, "load suite", "suite %s not found", path)
	}
	if err != nil {
		return nil, errs.Wrapf(errs.Precondition, err, "load suite", "read %s", path)
	}

	var suite Suite
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		suite, err = decodeYAML(data)
	case ".cue":
		suite, err = decodeCUE(path, data)
	default:
		return nil, errs.Newf(errs.Precondition, "load suite", "unsupported suite format %q", ext)
	}
	if err != nil {
		return nil, errs.Wrapf(errs.Parse, err, "load suite", "parse %s", path)
	}

	if len(suite.Plans) == 0 {
		return nil, errs.Newf(errs.Precondition, "load suite", "suite %s has no plans", path)
	}
	seen := make(map[string]bool, len(suite.Plans))
	for _, p := range suite.Plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.Name] {
			return nil, errs.Newf(errs.Precondition, "load suite", "duplicate plan %s", p.Name)
		}
		seen[p.Name] = true
	}
	return suite.Plans, nil
}

func decodeYAML(data []byte) (Suite, error) {
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&suite); err != nil {
		return Suite{}, err
	}
	return suite, nil
}

func decodeCUE(path string, data []byte) (Suite, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return Suite{}, err
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Suite{}, err
	}

	var suite Suite
	if err := v.Decode(&suite); err != nil {
		return Suite{}, err
	}
	return suite, nil
}
