package extract

import (
	"regexp"
	"strings"

	"github.com/gmsas95/idscan/internal/ocr"
)

const (
	numberMinConf    = 0.3
	keywordMinConf   = 0.1
	afterKeywordConf = 0.5
	pairMinConf      = 0.8
	signatureMinConf = 0.3
)

var (
	splitSSN  = regexp.MustCompile(`^\d{4,5}-\d{4}$`)
	dashedSSN = regexp.MustCompile(`^\d{3}-\d{2,5}-\d{4}$`)
)

// SpecimenSSN is the literal printed on sample cards
const SpecimenSSN = "XXX-XX-XXXX"

// ExtractSSN assembles a social-security-card record: number, printed name
// and signature. Confidence gates every heuristic; lines without a reported
// confidence count as certain.
func ExtractSSN(lines []ocr.Line) *Record {
	in := NewInput(lines)
	rec := NewRecord(KindSSN)

	f, src := SSNNumberChain().Run(in)
	rec.set("doc_number", &rec.DocNumber, f, src)

	f, src = SSNNameChain().Run(in)
	rec.set("name", &rec.Name, f, src)

	f, src = SignatureChain(rec.Name).Run(in)
	rec.set("signature", &rec.Signature, f, src)

	return rec
}

// SSNNumberChain tries, line by line, the split, dashed, specimen and
// digit-run forms. A line matching the split form is only tried as such.
func SSNNumberChain() Chain {
	return Chain{
		{Name: "ssn-pattern", Fn: func(in Input) (string, bool) {
			for i, l := range in.Lines {
				if l.Conf() <= numberMinConf {
					continue
				}
				cleaned := strings.Map(func(r rune) rune {
					if (r >= '0' && r <= '9') || r == '-' {
						return r
					}
					return -1
				}, l.Text)

				switch {
				case splitSSN.MatchString(cleaned):
					if i == 0 {
						continue
					}
					prev := digitsOnly(in.Texts[i-1])
					if len(prev) < 3 {
						continue
					}
					if d := prev[:3] + strings.ReplaceAll(cleaned, "-", ""); len(d) >= 9 {
						return formatSSN(d), true
					}
				case dashedSSN.MatchString(cleaned):
					if d := digitsOnly(cleaned); len(d) >= 9 {
						return formatSSN(d), true
					}
				case strings.Contains(strings.ToUpper(l.Text), SpecimenSSN):
					return SpecimenSSN, true
				default:
					if d := digitsOnly(l.Text); len(d) >= 9 {
						return formatSSN(d), true
					}
				}
			}
			return "", false
		}},
	}
}

func formatSSN(digits string) string {
	return digits[:3] + "-" + digits[3:5] + "-" + digits[5:9]
}

// SSNNameChain finds the printed name
func SSNNameChain() Chain {
	return Chain{
		{Name: "established-for", Fn: func(in Input) (string, bool) {
			seen := false
			for i, l := range in.Lines {
				if strings.Contains(strings.ToUpper(l.Text), "ESTABLISHED FOR") && l.Conf() > keywordMinConf {
					seen = true
					continue
				}
				if !seen || l.Conf() <= afterKeywordConf {
					continue
				}
				words := strings.Fields(l.Text)
				if len(words) >= 2 && allUpperWords(words) {
					return upperFix(strings.Join(words, " ")), true
				}
				if len(words) == 1 && upperWord(words[0]) && i+1 < len(in.Lines) {
					next := in.Lines[i+1]
					if upperWord(next.Text) && next.Conf() > afterKeywordConf {
						return upperFix(words[0] + " " + next.Text), true
					}
				}
			}
			return "", false
		}},
		{Name: "upper-pair", Fn: func(in Input) (string, bool) {
			for i := 0; i+1 < len(in.Lines); i++ {
				a, b := in.Lines[i], in.Lines[i+1]
				if !upperWord(a.Text) || !upperWord(b.Text) {
					continue
				}
				if a.Conf() <= pairMinConf || b.Conf() <= pairMinConf {
					continue
				}
				if strings.Contains(strings.ToUpper(a.Text), "SIGN") || strings.Contains(strings.ToUpper(b.Text), "SIGN") {
					continue
				}
				return upperFix(a.Text + " " + b.Text), true
			}
			return "", false
		}},
		{Name: "upper-words", Fn: func(in Input) (string, bool) {
			for _, line := range in.Texts {
				words := strings.Fields(line)
				if len(words) >= 2 && allUpperWords(words) {
					return upperFix(strings.Join(words, " ")), true
				}
			}
			return "", false
		}},
	}
}

// SignatureChain finds the signature line: the line under the name, else the
// line under a SIGNATURE caption.
func SignatureChain(name Field) Chain {
	return Chain{
		{Name: "below-name", Fn: func(in Input) (string, bool) {
			if !name.Found {
				return "", false
			}
			idx := nameLine(in, name.Value)
			if idx < 0 || idx+1 >= len(in.Lines) {
				return "", false
			}
			cand := in.Lines[idx+1]
			if strings.Contains(strings.ToUpper(cand.Text), "SIGNATURE") {
				return "", false
			}
			return signatureLike(cand)
		}},
		{Name: "below-caption", Fn: func(in Input) (string, bool) {
			for i, l := range in.Lines {
				if !strings.Contains(strings.ToUpper(l.Text), "SIGNATURE") {
					continue
				}
				if i+1 >= len(in.Lines) {
					return "", false
				}
				return signatureLike(in.Lines[i+1])
			}
			return "", false
		}},
	}
}

// nameLine returns the index of the line holding name. A name split over two
// lines resolves to the line with its last word.
func nameLine(in Input, name string) int {
	for i, l := range in.Lines {
		if l.Conf() > pairMinConf && strings.Contains(upperFix(l.Text), name) {
			return i
		}
	}
	words := strings.Fields(name)
	if len(words) < 2 {
		return -1
	}
	last := words[len(words)-1]
	for i, l := range in.Lines {
		if l.Conf() > pairMinConf && upperFix(strings.TrimSpace(l.Text)) == last {
			return i
		}
	}
	return -1
}

// signatureLike accepts handwriting-looking text: not all capitals, longer than two
func signatureLike(l ocr.Line) (string, bool) {
	if len(l.Text) <= 2 || l.Conf() <= signatureMinConf {
		return "", false
	}
	if !hasLower(l.Text) {
		return "", false
	}
	return l.Text, true
}

// upperWord accepts an uppercase alphabetic token, tolerating a lowercase i
// which OCR often produces for a capital I
func upperWord(s string) bool {
	return isUpperAlpha(upperFix(s))
}

func allUpperWords(words []string) bool {
	for _, w := range words {
		if !upperWord(w) {
			return false
		}
	}
	return true
}

func upperFix(s string) string {
	return strings.ReplaceAll(s, "i", "I")
}
