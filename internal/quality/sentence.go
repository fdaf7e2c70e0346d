package quality

import (
	"strings"
	"unicode"
)

// abbreviations that end in a period without ending a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "no": true, "vs": true,
	"etc": true, "inc": true, "ltd": true, "co": true, "corp": true,
	"fig": true, "vol": true, "dept": true, "est": true, "approx": true,
	"e.g": true, "i.e": true, "u.s": true, "u.k": true, "ph.d": true,
}

// splitSentences cuts text at sentence-terminal punctuation, skipping
// periods that belong to a known abbreviation or a single-letter
// initial. Empty fragments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if r == '.' && !endsSentence(runes, start, i) {
			continue
		}
		// Swallow runs of terminals like "..." or "?!".
		for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
			i++
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// endsSentence decides whether the period at runes[dot] terminates a
// sentence, given the current sentence starts at runes[from].
func endsSentence(runes []rune, from, dot int) bool {
	// A digit on both sides is a decimal point.
	if dot > from && dot+1 < len(runes) &&
		unicode.IsDigit(runes[dot-1]) && unicode.IsDigit(runes[dot+1]) {
		return false
	}
	i := dot - 1
	for i >= from && (unicode.IsLetter(runes[i]) || runes[i] == '.') {
		i--
	}
	word := strings.ToLower(strings.TrimSuffix(string(runes[i+1:dot]), "."))
	if word == "" {
		return true
	}
	if abbreviations[word] {
		return false
	}
	// Single-letter initials: "J. Smith".
	if len([]rune(word)) == 1 && !strings.ContainsRune("aiouy", []rune(word)[0]) {
		return false
	}
	return true
}

// words splits a sentence into words, trimming surrounding punctuation.
func words(sentence string) []string {
	fields := strings.Fields(sentence)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
