package extract

import (
	"strings"
)

// NameChain finds the holder's name with the labeled-line heuristic
func (p Profile) NameChain() Chain {
	return Chain{
		{Name: "labeled-line", Fn: p.labeledName},
		{Name: "single-word", Fn: p.singleWordName},
	}
}

// labeledName walks the lines top-down. Below a labeled line it looks for an
// unlabeled two-word line; an unlabeled line with two or more words is a name
// by itself.
func (p Profile) labeledName(in Input) (string, bool) {
	for i, line := range in.Texts {
		if p.hasLabel(line) {
			for k := 1; k <= p.NameLookahead; k++ {
				cand, ok := in.next(i, k)
				if !ok {
					break
				}
				if p.hasLabel(cand) {
					continue
				}
				if words := alphaWords(cand); len(words) == 2 {
					return title(strings.Join(words, " ")), true
				}
			}
			continue
		}
		if words := alphaWords(line); len(words) >= 2 {
			return title(strings.Join(words, " ")), true
		}
	}
	return "", false
}

func (p Profile) singleWordName(in Input) (string, bool) {
	for _, line := range in.Texts {
		if p.hasLabel(line) {
			continue
		}
		if words := alphaWords(line); len(words) == 1 {
			return title(words[0]), true
		}
	}
	return "", false
}
