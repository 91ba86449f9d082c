package extract

import (
	"regexp"
	"strings"
)

var spacedEightDigits = regexp.MustCompile(`\d{2}\s\d{3}\s\d{3}`)

// DocNumberChain selects the region-specific policy when region matches the
// profile's high-volume region, the general policy otherwise.
func (p Profile) DocNumberChain(region Field) Chain {
	if region.Found && strings.EqualFold(region.Value, p.RegionSpecific) {
		return RegionDocNumberChain()
	}
	return p.GeneralDocNumberChain()
}

// RegionDocNumberChain extracts 8-digit numbers
func RegionDocNumberChain() Chain {
	return Chain{
		{Name: "kv-marker-8", Fn: func(in Input) (string, bool) {
			return in.KV.Find(regionMarkers, exactDigits(8))
		}},
		{Name: "line-marker-8", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if !strings.Contains(strings.ToUpper(line), "DLN") {
					continue
				}
				if v, ok := exactDigits(8)(line); ok {
					return v, true
				}
			}
			return "", false
		}},
		{Name: "spaced-token-8", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if tok := spacedEightDigits.FindString(line); tok != "" {
					if v, ok := exactDigits(8)(tok); ok {
						return v, true
					}
				}
			}
			return "", false
		}},
		{Name: "any-line-8", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if v, ok := exactDigits(8)(line); ok {
					return v, true
				}
			}
			return "", false
		}},
	}
}

// GeneralDocNumberChain extracts 6 to 20 character alphanumeric numbers
func (p Profile) GeneralDocNumberChain() Chain {
	fixed := regexp.MustCompile("^" + regexp.QuoteMeta(p.FixedPrefix) + "[A-Z0-9]{6}$")
	markers := p.Markers
	return Chain{
		{Name: "kv-marker", Fn: func(in Input) (string, bool) {
			return in.KV.Find(markers, plausibleNumber)
		}},
		{Name: "fixed-prefix", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if guess := alnumUpper(line); fixed.MatchString(guess) {
					return guess, true
				}
			}
			return "", false
		}},
		{Name: "any-line", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if v, ok := plausibleNumber(line); ok {
					return v, true
				}
			}
			return "", false
		}},
	}
}

func exactDigits(n int) func(string) (string, bool) {
	return func(s string) (string, bool) {
		d := digitsOnly(s)
		return d, len(d) == n
	}
}

// plausibleNumber accepts 6 to 20 characters of [A-Z0-9] that are not all letters
func plausibleNumber(s string) (string, bool) {
	cleaned := alnumUpper(s)
	if len(cleaned) < 6 || len(cleaned) > 20 || isAlpha(cleaned) {
		return "", false
	}
	return cleaned, true
}
