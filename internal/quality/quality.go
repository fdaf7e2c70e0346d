// Package quality scores a document for readability and internal
// consistency. Readability uses the Flesch reading-ease formula over a
// rule-based sentence and syllable count; consistency checks heading
// structure and formatting uniformity within nominal styles.
package quality

import (
	"fmt"
	"sort"

	"github.com/docsense/docsense/internal/dom"
)

const (
	DefaultMaxSentenceWords = 25
	DefaultReadabilityFloor = 30.0
)

// ThresholdConfigError reports an invalid scoring threshold. It is
// raised before any scoring starts.
type ThresholdConfigError struct {
	Field string
	Value float64
}

func (e *ThresholdConfigError) Error() string {
	return fmt.Sprintf("quality: invalid threshold %s=%v", e.Field, e.Value)
}

// Thresholds configures the scorer. Zero values select the defaults;
// negative values are rejected.
type Thresholds struct {
	// MaxSentenceWords flags sentences longer than this many words.
	MaxSentenceWords int
	// ReadabilityFloor flags sentences whose own Flesch score falls
	// below it. Valid range is 0 to 100.
	ReadabilityFloor float64
}

func (t *Thresholds) validate() error {
	if t.MaxSentenceWords < 0 {
		return &ThresholdConfigError{Field: "max_sentence_words", Value: float64(t.MaxSentenceWords)}
	}
	if t.ReadabilityFloor < 0 || t.ReadabilityFloor > 100 {
		return &ThresholdConfigError{Field: "readability_floor", Value: t.ReadabilityFloor}
	}
	if t.MaxSentenceWords == 0 {
		t.MaxSentenceWords = DefaultMaxSentenceWords
	}
	if t.ReadabilityFloor == 0 {
		t.ReadabilityFloor = DefaultReadabilityFloor
	}
	return nil
}

// FlaggedSentence is one sentence the scorer singled out.
type FlaggedSentence struct {
	BlockPos int     `json:"position"`
	Sentence string  `json:"sentence"`
	Reason   string  `json:"reason"`
	Words    int     `json:"words"`
	Score    float64 `json:"score"`
}

// Finding is one internal-consistency violation.
type Finding struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	Positions []int  `json:"positions"`
}

// Report is the scorer's output for one document.
type Report struct {
	ReadabilityScore float64           `json:"readability_score"`
	SentenceCount    int               `json:"sentence_count"`
	WordCount        int               `json:"word_count"`
	SyllableCount    int               `json:"syllable_count"`
	Flagged          []FlaggedSentence `json:"flagged_sentences"`
	Findings         []Finding         `json:"consistency_findings"`
}

// Assess scores the document. A document with no sentences gets a
// readability score of 0.
func Assess(doc *dom.Document, th Thresholds) (*Report, error) {
	if err := th.validate(); err != nil {
		return nil, err
	}
	rep := &Report{}

	for _, b := range doc.Blocks {
		if b.Kind != dom.KindParagraph {
			continue
		}
		for _, sentence := range splitSentences(b.Text()) {
			ws := words(sentence)
			if len(ws) == 0 {
				continue
			}
			syl := 0
			for _, w := range ws {
				syl += countSyllables(w)
			}
			rep.SentenceCount++
			rep.WordCount += len(ws)
			rep.SyllableCount += syl

			score := flesch(len(ws), 1, syl)
			if len(ws) > th.MaxSentenceWords {
				rep.Flagged = append(rep.Flagged, FlaggedSentence{
					BlockPos: b.Pos, Sentence: sentence,
					Reason: fmt.Sprintf("sentence has %d words (limit %d)", len(ws), th.MaxSentenceWords),
					Words:  len(ws), Score: score,
				})
			} else if score < th.ReadabilityFloor {
				rep.Flagged = append(rep.Flagged, FlaggedSentence{
					BlockPos: b.Pos, Sentence: sentence,
					Reason: fmt.Sprintf("readability %.1f below floor %.1f", score, th.ReadabilityFloor),
					Words:  len(ws), Score: score,
				})
			}
		}
	}

	if rep.SentenceCount > 0 {
		rep.ReadabilityScore = flesch(rep.WordCount, rep.SentenceCount, rep.SyllableCount)
	}
	rep.Findings = consistency(doc)
	return rep, nil
}

// flesch computes the reading-ease score, clamped to 0..100.
func flesch(wordCount, sentenceCount, syllableCount int) float64 {
	if wordCount == 0 || sentenceCount == 0 {
		return 0
	}
	score := 206.835 -
		1.015*(float64(wordCount)/float64(sentenceCount)) -
		84.6*(float64(syllableCount)/float64(wordCount))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// consistency runs the structural checks: heading level jumps, then
// font, size, spacing, and alignment uniformity within each nominal
// paragraph style.
func consistency(doc *dom.Document) []Finding {
	var findings []Finding

	prevLevel := 0
	for _, b := range doc.Blocks {
		if b.Kind != dom.KindHeading {
			continue
		}
		if prevLevel > 0 && b.Level > prevLevel+1 {
			findings = append(findings, Finding{
				Kind:      "heading_level_jump",
				Detail:    fmt.Sprintf("heading level jumps from %d to %d", prevLevel, b.Level),
				Positions: []int{b.Pos},
			})
		}
		prevLevel = b.Level
	}

	type group struct {
		fonts    map[string][]int
		sizes    map[string][]int
		spacings map[string][]int
		aligns   map[string][]int
	}
	groups := map[string]*group{}
	var styles []string
	for _, b := range doc.Blocks {
		if b.Kind != dom.KindParagraph || len(b.Runs) == 0 {
			continue
		}
		g, ok := groups[b.Style]
		if !ok {
			g = &group{
				fonts:    map[string][]int{},
				sizes:    map[string][]int{},
				spacings: map[string][]int{},
				aligns:   map[string][]int{},
			}
			groups[b.Style] = g
			styles = append(styles, b.Style)
		}
		f := b.FirstFormat()
		if f.Font != "" {
			g.fonts[f.Font] = append(g.fonts[f.Font], b.Pos)
		}
		if f.Size > 0 {
			g.sizes[fmt.Sprintf("%g", f.Size)] = append(g.sizes[fmt.Sprintf("%g", f.Size)], b.Pos)
		}
		if b.Spacing > 0 {
			g.spacings[fmt.Sprintf("%g", b.Spacing)] = append(g.spacings[fmt.Sprintf("%g", b.Spacing)], b.Pos)
		}
		if b.Align != "" {
			g.aligns[b.Align] = append(g.aligns[b.Align], b.Pos)
		}
	}

	for _, style := range styles {
		g := groups[style]
		name := style
		if name == "" {
			name = "default"
		}
		findings = appendUniformity(findings, "font_mismatch", name, "font", g.fonts)
		findings = appendUniformity(findings, "size_mismatch", name, "size", g.sizes)
		findings = appendUniformity(findings, "spacing_mismatch", name, "spacing", g.spacings)
		findings = appendUniformity(findings, "alignment_mismatch", name, "alignment", g.aligns)
	}
	return findings
}

// appendUniformity flags the positions that deviate from the dominant
// value of one attribute within one style group.
func appendUniformity(findings []Finding, kind, style, attr string, values map[string][]int) []Finding {
	if len(values) < 2 {
		return findings
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := values[keys[i]], values[keys[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a[0] < b[0]
	})
	dominant := keys[0]
	var offenders []int
	for _, k := range keys[1:] {
		offenders = append(offenders, values[k]...)
	}
	sort.Ints(offenders)
	return append(findings, Finding{
		Kind:      kind,
		Detail:    fmt.Sprintf("style %q uses %d different %s values (dominant %s)", style, len(values), attr, dominant),
		Positions: offenders,
	})
}
