package transcript

import (
	"strings"

	"github.com/voicehive/voicehive/internal/transcript/phonetic"
)

// The matcher's own defaults suit distinctive proper names. Hotel vocabulary
// is common nouns ("massage" sits one vowel from "message"), so the corrector
// demands much closer spellings before it rewrites anything.
const (
	correctorPhoneticThreshold = 0.93
	correctorFuzzyThreshold    = 0.95
)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithMatcher replaces the phonetic matcher, e.g. to tune its thresholds.
func WithMatcher(m *phonetic.Matcher) Option {
	return func(c *Corrector) {
		c.matcher = m
	}
}

// Corrector aligns transcribed text with a fixed vocabulary. It is read-only
// after construction and safe for concurrent use.
type Corrector struct {
	matcher *phonetic.Matcher

	// singles are one-word entries, matched token by token. multis are
	// multi-word entries, matched against token windows of the same length
	// so a shared word ("room", "late") can never drag in a whole phrase.
	singles  []string
	multis   [][]string
	maxWords int
}

// NewCorrector builds a corrector over the given vocabulary. Blank entries
// are dropped; an empty vocabulary yields a corrector that never changes
// anything.
func NewCorrector(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		matcher: phonetic.New(
			phonetic.WithPhoneticThreshold(correctorPhoneticThreshold),
			phonetic.WithFuzzyThreshold(correctorFuzzyThreshold),
		),
		maxWords: 1,
	}
	for _, entry := range vocabulary {
		tokens := strings.Fields(entry)
		switch {
		case len(tokens) == 0:
		case len(tokens) == 1:
			c.singles = append(c.singles, tokens[0])
		default:
			c.multis = append(c.multis, tokens)
			if len(tokens) > c.maxWords {
				c.maxWords = len(tokens)
			}
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct runs the phonetic pass over text.
//
// The text is split into whitespace tokens and scanned left to right. At each
// position, multi-word entries are tried longest first against a window of
// the same token count; a window matches only when every aligned token pair
// clears the matcher's threshold. Remaining tokens are matched one by one
// against the single-word entries. Spans that already spell a vocabulary
// entry are left untouched and not reported.
func (c *Corrector) Correct(text string) Result {
	res := Result{Original: text, Corrected: text}
	tokens := strings.Fields(text)
	if len(tokens) == 0 || (len(c.singles) == 0 && len(c.multis) == 0) {
		return res
	}

	var output []string

	i := 0
	for i < len(tokens) {
		if entry, conf, n, ok := c.matchMulti(tokens[i:]); ok {
			window := strings.Join(tokens[i:i+n], " ")
			if strings.EqualFold(window, entry) {
				output = append(output, tokens[i:i+n]...)
			} else {
				output = append(output, strings.Fields(entry)...)
				res.Corrections = append(res.Corrections, Correction{
					Original:   window,
					Corrected:  entry,
					Confidence: conf,
				})
			}
			i += n
			continue
		}

		if corrected, conf, ok := c.matcher.Match(tokens[i], c.singles); ok && !strings.EqualFold(tokens[i], corrected) {
			output = append(output, corrected)
			res.Corrections = append(res.Corrections, Correction{
				Original:   tokens[i],
				Corrected:  corrected,
				Confidence: conf,
			})
		} else {
			output = append(output, tokens[i])
		}
		i++
	}

	res.Corrected = strings.Join(output, " ")
	return res
}

// matchMulti tries every multi-word entry against the leading tokens of rest,
// longest entries first. The returned confidence is the weakest aligned-token
// score.
func (c *Corrector) matchMulti(rest []string) (entry string, conf float64, n int, ok bool) {
	for width := c.maxWords; width >= 2; width-- {
		if width > len(rest) {
			continue
		}
		for _, candidate := range c.multis {
			if len(candidate) != width {
				continue
			}
			score, aligned := c.alignTokens(rest[:width], candidate)
			if aligned && score > conf {
				entry, conf, n, ok = strings.Join(candidate, " "), score, width, true
			}
		}
		if ok {
			return entry, conf, n, true
		}
	}
	return "", 0, 0, false
}

// alignTokens matches window tokens against entry tokens position by
// position. Every pair must clear the matcher's threshold on its own.
func (c *Corrector) alignTokens(window, entry []string) (float64, bool) {
	min := 1.0
	for i, w := range window {
		if strings.EqualFold(w, entry[i]) {
			continue
		}
		_, score, ok := c.matcher.Match(w, entry[i:i+1])
		if !ok {
			return 0, false
		}
		if score < min {
			min = score
		}
	}
	return min, true
}
