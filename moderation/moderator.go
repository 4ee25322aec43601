// Package moderation censors outbound message bodies before they are
// inserted optimistically. Inbound remote messages are authoritative and
// pass through untouched.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"chat-sync/errors"
)

// Moderator matches a normalized form of the body against an Aho-Corasick
// automaton and masks the matched spans in the original text.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// NewModerator builds the automaton from the censored word list. Words are
// normalized the same way bodies are, so leet-speak variants still match.
func NewModerator(censoredWords []string, censoredChar rune) (Moderator, error) {
	if len(censoredWords) == 0 {
		return Moderator{}, errors.ErrEmptyWords
	}
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i], _ = normalize([]rune(word))
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, censoredChar: censoredChar}, nil
}

// Censor masks every forbidden span of the body, preserving length and
// spacing so the optimistic insert still lines up with what the user typed.
func (m Moderator) Censor(body string) string {
	origRunes := []rune(body)
	normalized, origIdx := normalize(origRunes)
	if len(normalized) == 0 {
		return body
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.censoredChar
		}
	}
	return string(origRunes)
}

// normalize lowercases, maps common leet substitutions back to letters and
// strips punctuation and spacing. origIdx maps each normalized rune back to
// its position in the input so masking hits the original characters.
func normalize(input []rune) (normalized []rune, origIdx []int) {
	normalized = make([]rune, 0, len(input))
	origIdx = make([]int, 0, len(input))
	for i, r := range input {
		clean := unleet(r)
		if unicode.IsPunct(clean) || unicode.IsSpace(clean) || unicode.IsSymbol(clean) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return normalized, origIdx
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
