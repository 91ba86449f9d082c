package extract

import (
	"regexp"
	"strings"
)

var inlineSex = regexp.MustCompile(`(?i)SEX[:\s-]*([MF])`)

// SexChain finds the holder's sex as M or F
func SexChain() Chain {
	return Chain{
		{Name: "kv-sex", Fn: func(in Input) (string, bool) {
			return in.KV.Find([]string{"SEX"}, sexLetter)
		}},
		{Name: "inline-sex", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if m := inlineSex.FindStringSubmatch(line); m != nil {
					return strings.ToUpper(m[1]), true
				}
			}
			return "", false
		}},
		{Name: "sex-next-line", Fn: func(in Input) (string, bool) {
			for i, line := range in.Texts {
				if !strings.Contains(strings.ToUpper(line), "SEX") {
					continue
				}
				if next, ok := in.next(i, 1); ok {
					if v, ok := sexLetter(next); ok {
						return v, true
					}
				}
			}
			return "", false
		}},
		{Name: "lone-letter", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if v, ok := sexLetter(line); ok {
					return v, true
				}
			}
			return "", false
		}},
	}
}

func sexLetter(s string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	return v, v == "M" || v == "F"
}
