// Package summarizer builds extractive summaries without calling a model.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxSentences = 4
	DefaultMaxRunes     = 700
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// FrequencySummarizer ranks sentences by normalised token frequency and
// returns the best ones in their original order.
type FrequencySummarizer struct {
	maxSentences int
	maxRunes     int
	stopwords    map[string]struct{}
}

func NewFrequencySummarizer(maxSentences, maxRunes int) *FrequencySummarizer {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &FrequencySummarizer{
		maxSentences: maxSentences,
		maxRunes:     maxRunes,
		stopwords:    defaultStopwords(),
	}
}

// Summarize never returns more than maxRunes runes. Blank input yields "".
func (s *FrequencySummarizer) Summarize(text string) string {
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	if text == "" {
		return ""
	}

	var sentences []string
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		if sent := strings.TrimSpace(raw); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return clip(text, s.maxRunes)
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok]
		}
		if len(toks) > 0 {
			total /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{idx: i, score: total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	n := min(s.maxSentences, len(scores))
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	var b strings.Builder
	for _, idx := range selected {
		sent := sentences[idx]
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if utf8.RuneCountInString(b.String())+sep+utf8.RuneCountInString(sent) > s.maxRunes {
			if b.Len() == 0 {
				return clip(sent, s.maxRunes)
			}
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(sent)
	}
	return b.String()
}

func (s *FrequencySummarizer) tokens(text string) []string {
	all := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, tok := range all {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 1 {
		return string(runes[:n])
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
