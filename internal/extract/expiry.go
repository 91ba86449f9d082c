package extract

import (
	"regexp"
	"strings"
)

var (
	fullDate  = regexp.MustCompile(`\d{2}/\d{2}/\d{4}|\d{2}-\d{2}-\d{4}`)
	shortDate = regexp.MustCompile(`\d{2}/\d{4}|\d{2}-\d{4}`)
)

// ExpiryChain finds the expiry date
func ExpiryChain() Chain {
	return Chain{
		{Name: "kv-exp", Fn: func(in Input) (string, bool) {
			return in.KV.Find([]string{"EXP"}, matchOf(fullDate))
		}},
		{Name: "exp-line", Fn: func(in Input) (string, bool) {
			for i, line := range in.Texts {
				if !strings.Contains(strings.ToUpper(line), "EXP") {
					continue
				}
				next, _ := in.next(i, 1)
				for _, re := range []*regexp.Regexp{fullDate, shortDate} {
					if m := re.FindString(line); m != "" {
						return m, true
					}
					if m := re.FindString(next); m != "" {
						return m, true
					}
				}
			}
			return "", false
		}},
		{Name: "any-date", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				if m := fullDate.FindString(line); m != "" {
					return m, true
				}
			}
			return "", false
		}},
	}
}

func matchOf(re *regexp.Regexp) func(string) (string, bool) {
	return func(s string) (string, bool) {
		m := re.FindString(s)
		return m, m != ""
	}
}
