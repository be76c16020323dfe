// Package chunk splits extracted text into bounded windows and ranks
// them against a query. Ranking is a pure function of its inputs, so
// the merged ordering is independent of fetch completion order.
package chunk

import (
	"sort"
	"strings"
	"unicode"
)

// Chunk is one bounded slice of extracted text.
type Chunk struct {
	URL string `json:"url"`
	// Offset is the rune offset of the chunk within the source text.
	Offset int     `json:"offset"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	// SourceOrder is the URL's position in the original selection,
	// used as the stable cross-URL tie-break.
	SourceOrder int `json:"-"`
}

// Scoring weights. Tunable parameters, not contractual values: the
// bound-enforcement and determinism tests pin behavior, not constants.
const (
	positionalWeight = 0.25
	overlapWeight    = 0.75
	positionalDecay  = 0.15
)

// Rank splits text into chunks of at most maxChunkChars runes, scored
// against query. An empty query yields a purely positional score
// favoring lead paragraphs.
func Rank(text, query string, topK, maxChunkChars int) []Chunk {
	if topK <= 0 {
		topK = 5
	}
	if maxChunkChars < 50 {
		maxChunkChars = 50
	}
	windows := split(text, maxChunkChars)
	if len(windows) == 0 {
		return nil
	}

	queryTokens := dedupe(tokenize(query))
	chunks := make([]Chunk, 0, len(windows))
	for i, w := range windows {
		score := positionalScore(i)
		if len(queryTokens) > 0 {
			score = positionalWeight*positionalScore(i) + overlapWeight*overlapScore(queryTokens, w.text)
		}
		chunks = append(chunks, Chunk{
			Offset: w.offset,
			Text:   w.text,
			Score:  score,
		})
	}

	sort.SliceStable(chunks, func(a, b int) bool {
		if chunks[a].Score != chunks[b].Score {
			return chunks[a].Score > chunks[b].Score
		}
		return chunks[a].Offset < chunks[b].Offset
	})
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks
}

// Merge combines per-URL rankings into one cross-URL ordering:
// descending score, ties broken by URL selection order then offset,
// truncated to topK.
func Merge(perURL [][]Chunk, topK int) []Chunk {
	var all []Chunk
	for _, chunks := range perURL {
		all = append(all, chunks...)
	}
	sort.SliceStable(all, func(a, b int) bool {
		if all[a].Score != all[b].Score {
			return all[a].Score > all[b].Score
		}
		if all[a].SourceOrder != all[b].SourceOrder {
			return all[a].SourceOrder < all[b].SourceOrder
		}
		return all[a].Offset < all[b].Offset
	})
	if topK > 0 && len(all) > topK {
		all = all[:topK]
	}
	return all
}

func positionalScore(index int) float64 {
	return 1.0 / (1.0 + positionalDecay*float64(index))
}

// overlapScore is the normalized term frequency of query tokens in the
// chunk: matched occurrences over total chunk tokens.
func overlapScore(queryTokens []string, text string) float64 {
	chunkTokens := tokenize(text)
	if len(chunkTokens) == 0 {
		return 0
	}
	matched := 0
	for _, t := range chunkTokens {
		for _, q := range queryTokens {
			if t == q || (len(q) >= 3 && strings.HasPrefix(t, q)) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(chunkTokens))
}

type window struct {
	offset int
	text   string
}

// split cuts text into paragraph-aligned windows. Paragraphs longer
// than maxChunkChars are cut at the last word boundary before the cap.
func split(text string, maxChunkChars int) []window {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []window
	offset := 0
	for _, para := range strings.Split(text, "\n\n") {
		paraRunes := []rune(para)
		start := 0
		for start < len(paraRunes) {
			// Skip whitespace so the offset lands on the first rune of
			// the piece.
			for start < len(paraRunes) && unicode.IsSpace(paraRunes[start]) {
				start++
			}
			if start == len(paraRunes) {
				break
			}
			end := start + maxChunkChars
			if end >= len(paraRunes) {
				end = len(paraRunes)
			} else {
				// Back up to the last space so a word never splits.
				cut := end
				for cut > start && !unicode.IsSpace(paraRunes[cut]) {
					cut--
				}
				if cut > start {
					end = cut
				}
			}
			if end == start {
				end = start + 1
			}
			piece := strings.TrimSpace(string(paraRunes[start:end]))
			if piece != "" {
				out = append(out, window{offset: offset + start, text: piece})
			}
			start = end
		}
		offset += len(paraRunes) + 2
	}
	return out
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "how": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "when": {}, "where": {}, "which": {}, "with": {},
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
