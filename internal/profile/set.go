package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/a3tai/invoice-extractor/internal/normalize"
)

// Auto selects the profile per document with Detect.
const Auto = "auto"

// Set is an ordered collection of validated profiles. It is built once per
// run and read concurrently afterwards.
type Set struct {
	profiles map[string]Profile
	order    []string
}

// File is the on-disk format of a profiles file.
type File struct {
	Profiles []Profile `yaml:"profiles" json:"profiles"`
}

// Builtin returns a Set holding the built-in profiles.
func Builtin() *Set {
	s := &Set{profiles: make(map[string]Profile)}
	for _, p := range builtinProfiles() {
		if err := s.Add(p); err != nil {
			panic(fmt.Sprintf("built-in profile %q: %v", p.Name, err))
		}
	}
	return s
}

// Add validates p, after filling defaults, and adds it. A profile with an
// existing name replaces it in place.
func (s *Set) Add(p Profile) error {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := s.profiles[p.Name]; !exists {
		s.order = append(s.order, p.Name)
	}
	s.profiles[p.Name] = p
	return nil
}

// LoadFile reads a YAML (or JSON) profiles file and adds every profile in it.
// Nothing is added when any profile is invalid.
func (s *Set) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profiles file: %w", err)
	}
	return s.Load(data)
}

// Load adds the profiles of a YAML (or JSON) document.
func (s *Set) Load(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal profiles: %w", err)
	}
	if len(f.Profiles) == 0 {
		return fmt.Errorf("profiles file defines no profiles")
	}

	seen := make(map[string]bool, len(f.Profiles))
	for i := range f.Profiles {
		p := f.Profiles[i].WithDefaults()
		if seen[p.Name] {
			return fmt.Errorf("profile %q defined twice", p.Name)
		}
		seen[p.Name] = true
		if p.Name == Auto {
			return fmt.Errorf("profile name %q is reserved", Auto)
		}
		if err := p.Validate(); err != nil {
			return err
		}
		f.Profiles[i] = p
	}
	for _, p := range f.Profiles {
		if err := s.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the profile called name.
func (s *Set) Get(name string) (Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(s.Names(), ", "))
	}
	return p, nil
}

// Names lists profile names in insertion order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Profiles returns every profile in insertion order.
func (s *Set) Profiles() []Profile {
	out := make([]Profile, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.profiles[name])
	}
	return out
}

// Detect picks the profile whose labels and markers occur most often in the
// document text. Ties go to the profile added first, so a document that
// matches nothing gets the first profile.
func (s *Set) Detect(text string) Profile {
	text = normalize.Normalize(text)

	best, bestScore := s.order[0], -1
	for _, name := range s.order {
		if score := labelHits(text, s.profiles[name].Labels()); score > bestScore {
			best, bestScore = name, score
		}
	}
	return s.profiles[best]
}

func labelHits(text string, labels []string) int {
	hits := 0
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		label = normalize.Normalize(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		if strings.Contains(text, label) {
			hits++
		}
	}
	return hits
}
