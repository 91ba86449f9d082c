package extract

import (
	"fmt"
	"strings"
)

// Profile tunes the driving-license heuristics. Two stock profiles exist:
// Permissive (default) and Strict.
type Profile struct {
	Name string
	// Labels are field captions; a line carrying one is never a name
	Labels []string
	// NameLookahead is how many lines below a label are searched for a name
	NameLookahead int
	// Markers select key-value pairs holding a document number (general policy)
	Markers []string
	// RegionSpecific is the region whose 8-digit numbering gets its own policy
	RegionSpecific string
	// FixedPrefix is the prefix of the 9-character fixed-pattern number
	FixedPrefix string
}

var (
	Permissive = Profile{
		Name:           "permissive",
		Labels:         permissiveLabels,
		NameLookahead:  2,
		Markers:        permissiveMarkers,
		RegionSpecific: "Pennsylvania",
		FixedPrefix:    "DLN",
	}

	Strict = Profile{
		Name:           "strict",
		Labels:         strictLabels,
		NameLookahead:  1,
		Markers:        strictMarkers,
		RegionSpecific: "Pennsylvania",
		FixedPrefix:    "DLN",
	}
)

// ProfileByName resolves a configured profile name
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	}
	return Profile{}, fmt.Errorf("unknown extraction profile %q", name)
}

// WithRegion returns a copy using region for the region-specific policy
func (p Profile) WithRegion(region string) Profile {
	if region != "" {
		p.RegionSpecific = region
	}
	return p
}

// WithPrefix returns a copy using prefix for the fixed-pattern number
func (p Profile) WithPrefix(prefix string) Profile {
	if prefix != "" {
		p.FixedPrefix = strings.ToUpper(prefix)
	}
	return p
}

// hasLabel reports whether line carries any label. Labels of three
// characters or fewer must be whole words; longer ones match anywhere.
func (p Profile) hasLabel(line string) bool {
	upper := strings.ToUpper(line)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	})
	for _, label := range p.Labels {
		if len(label) <= 3 {
			for _, w := range words {
				if w == label {
					return true
				}
			}
			continue
		}
		if strings.Contains(upper, label) {
			return true
		}
	}
	return false
}
