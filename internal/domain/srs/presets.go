package srs

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/recall-api/internal/domain"
	"gopkg.in/yaml.v3"
)

// StandardCurveName names the curve seeded for every user.
const StandardCurveName = "Standard"

// Preset is a named curve template copied into each new user's account.
type Preset struct {
	Name      string `yaml:"name"`
	Intervals []int  `yaml:"intervals"`
	Default   bool   `yaml:"default"`
}

type presetFile struct {
	Curves []Preset `yaml:"curves"`
}

// DecodePresets parses a presets document:
//
//	curves:
//	  - name: Exam cram
//	    intervals: [10, 60, 240, 1440]
func DecodePresets(r io.Reader) ([]Preset, error) {
	var file presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode curve presets: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Curves))
	defaults := 0
	for i, p := range file.Curves {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("curve preset %d: %w", i, domain.ErrEmptyCurveName)
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			return nil, fmt.Errorf("curve preset %q: duplicate name", name)
		}
		seen[strings.ToLower(name)] = struct{}{}
		if err := domain.ValidateIntervals(p.Intervals); err != nil {
			return nil, fmt.Errorf("curve preset %q: %w", name, err)
		}
		if p.Default {
			defaults++
		}
		file.Curves[i].Name = name
	}
	if defaults > 1 {
		return nil, fmt.Errorf("curve presets: %d curves marked default, want at most one", defaults)
	}

	return file.Curves, nil
}

// LoadPresets reads presets from path. An empty path yields no presets.
func LoadPresets(path string) ([]Preset, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curve presets: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodePresets(f)
}

// SeedPresets returns the presets a new account starts with: the standard
// curve first, followed by configured presets. Exactly one is marked default.
func SeedPresets(params *Params, extra []Preset) []Preset {
	if params == nil {
		params = NewDefaultParams()
	}
	hasDefault := false
	for _, p := range extra {
		if p.Default {
			hasDefault = true
		}
	}

	out := make([]Preset, 0, len(extra)+1)
	out = append(out, Preset{
		Name:      StandardCurveName,
		Intervals: append([]int(nil), params.StandardIntervals...),
		Default:   !hasDefault,
	})
	for _, p := range extra {
		if strings.EqualFold(p.Name, StandardCurveName) {
			// A preset may redefine the standard curve.
			out[0].Intervals = append([]int(nil), p.Intervals...)
			out[0].Default = p.Default || !hasDefault
			continue
		}
		out = append(out, p)
	}
	return out
}
