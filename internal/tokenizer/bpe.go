package tokenizer

import (
	"cmp"
	"slices"
	"strings"
)

// Pair is an adjacent symbol pair considered for a merge.
type Pair struct {
	A string
	B string
}

type textPart struct {
	text      string
	isSpecial bool
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func getPairs(word []string) map[Pair]struct{} {
	pairs := make(map[Pair]struct{})
	if len(word) < 2 {
		return pairs
	}
	prev := word[0]
	for _, w := range word[1:] {
		pairs[Pair{A: prev, B: w}] = struct{}{}
		prev = w
	}
	return pairs
}

func mergePair(word []string, pair Pair) []string {
	out := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		if i < len(word)-1 && word[i] == pair.A && word[i+1] == pair.B {
			out = append(out, word[i]+word[i+1])
			i++
			continue
		}
		out = append(out, word[i])
	}
	return out
}

// mergeWord applies merges to word in rank order until none applies.
func mergeWord(word []string, ranks map[Pair]int) []string {
	pairs := getPairs(word)
	for len(pairs) > 0 {
		bestRank := int(^uint(0) >> 1)
		bestPair := Pair{}
		found := false
		for p := range pairs {
			if rank, ok := ranks[p]; ok && rank < bestRank {
				bestRank = rank
				bestPair = p
				found = true
			}
		}
		if !found {
			break
		}
		word = mergePair(word, bestPair)
		if len(word) == 1 {
			break
		}
		pairs = getPairs(word)
	}
	return word
}

// mergeByScore is SentencePiece BPE: merge the adjacent pair whose
// concatenation is a vocabulary entry with the highest score, leftmost
// first, until no pair is in the vocabulary.
func mergeByScore(word []string, vocab map[string]int, scores []float32) []string {
	for len(word) > 1 {
		best := -1
		var bestScore float32
		for i := 0; i < len(word)-1; i++ {
			id, ok := vocab[word[i]+word[i+1]]
			if !ok || id >= len(scores) {
				continue
			}
			if best < 0 || scores[id] > bestScore {
				best, bestScore = i, scores[id]
			}
		}
		if best < 0 {
			break
		}
		word[best] += word[best+1]
		word = append(word[:best+1], word[best+2:]...)
	}
	return word
}

// sortSpecials orders specials longest first so the longest match wins.
func sortSpecials(specials []string) []string {
	out := slices.Clone(specials)
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	return out
}

func splitSpecials(text string, specials []string) []textPart {
	if len(specials) == 0 || !containsAny(text, specials) {
		return []textPart{{text: text}}
	}
	var parts []textPart
	var buf strings.Builder
	for i := 0; i < len(text); {
		match := ""
		for _, sp := range specials {
			if sp != "" && strings.HasPrefix(text[i:], sp) {
				match = sp
				break
			}
		}
		if match != "" {
			if buf.Len() > 0 {
				parts = append(parts, textPart{text: buf.String()})
				buf.Reset()
			}
			parts = append(parts, textPart{text: match, isSpecial: true})
			i += len(match)
			continue
		}
		buf.WriteByte(text[i])
		i++
	}
	if buf.Len() > 0 {
		parts = append(parts, textPart{text: buf.String()})
	}
	return parts
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// splitMetaspace cuts normalized text before every run of the space
// placeholder, so "a▁▁b▁c" becomes "a", "▁▁b", "▁c".
func splitMetaspace(s string) []string {
	var words []string
	start := 0
	prevSpace := true
	for i := 0; i < len(s); {
		isSpace := strings.HasPrefix(s[i:], metaspace)
		if isSpace && !prevSpace && i > start {
			words = append(words, s[start:i])
			start = i
		}
		prevSpace = isSpace
		if isSpace {
			i += len(metaspace)
		} else {
			i++
		}
	}
	if start < len(s) {
		words = append(words, s[start:])
	}
	return words
}

// bytesToUnicode maps bytes to printable runes so byte-level BPE stays
// reversible.
func bytesToUnicode() (map[byte]string, map[string]byte) {
	var bs []int
	for i := int('!'); i <= int('~'); i++ {
		bs = append(bs, i)
	}
	for i := int('¡'); i <= int('¬'); i++ {
		bs = append(bs, i)
	}
	for i := int('®'); i <= int('ÿ'); i++ {
		bs = append(bs, i)
	}

	cs := slices.Clone(bs)
	n := 0
	for b := 0; b < 256; b++ {
		if !slices.Contains(bs, b) {
			bs = append(bs, b)
			cs = append(cs, 256+n)
			n++
		}
	}

	byteEncoder := make(map[byte]string, len(bs))
	byteDecoder := make(map[string]byte, len(bs))
	for i := range bs {
		s := string(rune(cs[i]))
		byteEncoder[byte(bs[i])] = s
		byteDecoder[s] = byte(bs[i])
	}
	return byteEncoder, byteDecoder
}
