package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

const (
	// metaspace is the SentencePiece stand-in for a literal space.
	metaspace = "▁"

	maxCacheEntries = 1 << 16
)

type scheme int

const (
	schemeMetaspace scheme = iota
	schemeByteLevel
)

// HF is a BPE tokenizer loaded from a Hugging Face tokenizer.json or from
// the vocabulary embedded in a GGUF file. Llama and Mistral style
// vocabularies (metaspace normalisation with byte fallback) and GPT-2 style
// byte-level vocabularies are supported.
type HF struct {
	vocab  map[string]int
	tokens []string
	ranks  map[Pair]int
	// scores switches BPE to SentencePiece scoring when set.
	scores []float32

	mu    sync.Mutex
	cache map[string][]string

	scheme       scheme
	prependSpace bool
	byteFallback bool
	byteEncoder  map[byte]string
	byteDecoder  map[string]byte
	pattern      *regexp.Regexp

	special    []string
	specialIDs map[int]bool

	addBOS bool
	bosID  int
	eosID  int
	unkID  int
}

type hfTokenizerJSON struct {
	Model struct {
		Type         string         `json:"type"`
		Vocab        map[string]int `json:"vocab"`
		Merges       []any          `json:"merges"`
		UnkToken     string         `json:"unk_token"`
		ByteFallback bool           `json:"byte_fallback"`
	} `json:"model"`
	Normalizer    *hfNormalizer    `json:"normalizer"`
	PreTokenizer  *hfPreTokenizer  `json:"pre_tokenizer"`
	PostProcessor *hfPostProcessor `json:"post_processor"`
	AddedTokens   []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

type hfNormalizer struct {
	Type    string `json:"type"`
	Prepend string `json:"prepend"`
	Content string `json:"content"`
	Pattern struct {
		String string `json:"String"`
	} `json:"pattern"`
	Normalizers []hfNormalizer `json:"normalizers"`
}

type hfPreTokenizer struct {
	Type           string `json:"type"`
	Replacement    string `json:"replacement"`
	AddPrefixSpace *bool  `json:"add_prefix_space"`
	PrependScheme  string `json:"prepend_scheme"`
	Pattern        struct {
		Regex string `json:"Regex"`
	} `json:"pattern"`
	Pretokenizers []hfPreTokenizer `json:"pretokenizers"`
}

type hfPostProcessor struct {
	Type   string `json:"type"`
	Single []struct {
		SpecialToken *struct {
			ID string `json:"id"`
		} `json:"SpecialToken"`
	} `json:"single"`
	SpecialTokens map[string]struct {
		IDs []int `json:"ids"`
	} `json:"special_tokens"`
	Processors []hfPostProcessor `json:"processors"`
}

type hfTokenizerConfig struct {
	AddBOS *bool `json:"add_bos_token"`
	BOS    any   `json:"bos_token"`
	EOS    any   `json:"eos_token"`
}

// LoadHF reads tokenizer.json and, when tokConfig is not empty,
// tokenizer_config.json.
func LoadHF(tokJSON, tokConfig string) (*HF, error) {
	data, err := os.ReadFile(tokJSON)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	var cfg []byte
	if tokConfig != "" {
		cfg, err = os.ReadFile(tokConfig)
		if err != nil {
			return nil, fmt.Errorf("read tokenizer config: %w", err)
		}
	}
	return LoadHFBytes(data, cfg)
}

// LoadHFBytes is LoadHF on in-memory documents.
func LoadHFBytes(tokJSON, tokConfig []byte) (*HF, error) {
	var tj hfTokenizerJSON
	if err := json.Unmarshal(tokJSON, &tj); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}
	if !strings.EqualFold(tj.Model.Type, "BPE") {
		return nil, fmt.Errorf("unsupported tokenizer model: %q", tj.Model.Type)
	}

	maxID := -1
	for _, id := range tj.Model.Vocab {
		maxID = max(maxID, id)
	}
	for _, at := range tj.AddedTokens {
		maxID = max(maxID, at.ID)
	}
	if maxID < 0 {
		return nil, fmt.Errorf("tokenizer has an empty vocabulary")
	}
	tokens := make([]string, maxID+1)
	vocab := make(map[string]int, maxID+1)
	for tok, id := range tj.Model.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("negative id %d for token %q", id, tok)
		}
		tokens[id] = tok
		vocab[tok] = id
	}
	var special []string
	for _, at := range tj.AddedTokens {
		if at.ID < 0 {
			return nil, fmt.Errorf("negative id %d for added token %q", at.ID, at.Content)
		}
		tokens[at.ID] = at.Content
		vocab[at.Content] = at.ID
		special = append(special, at.Content)
	}

	t := &HF{
		vocab:        vocab,
		tokens:       tokens,
		ranks:        parseMerges(tj.Model.Merges),
		cache:        make(map[string][]string),
		byteFallback: tj.Model.ByteFallback,
		bosID:        -1,
		eosID:        -1,
		unkID:        -1,
	}
	t.setSpecials(special)
	t.configureScheme(tj.Normalizer, tj.PreTokenizer)

	if tj.Model.UnkToken != "" {
		if id, ok := vocab[tj.Model.UnkToken]; ok {
			t.unkID = id
		}
	}
	if tj.PostProcessor != nil {
		if id, ok := leadingSpecial(*tj.PostProcessor); ok {
			t.addBOS = true
			t.bosID = id
		}
	}

	var cfg hfTokenizerConfig
	if len(tokConfig) > 0 {
		if err := json.Unmarshal(tokConfig, &cfg); err != nil {
			return nil, fmt.Errorf("parse tokenizer config: %w", err)
		}
	}
	if id, ok := vocab[tokenContent(cfg.BOS)]; ok {
		t.bosID = id
	}
	if cfg.AddBOS != nil {
		t.addBOS = *cfg.AddBOS
	}
	if id, ok := vocab[tokenContent(cfg.EOS)]; ok {
		t.eosID = id
	} else if id, ok := vocab["</s>"]; ok {
		t.eosID = id
	}
	if t.addBOS && t.bosID < 0 {
		if id, ok := vocab["<s>"]; ok {
			t.bosID = id
		} else {
			t.addBOS = false
		}
	}
	return t, nil
}

func parseMerges(raw []any) map[Pair]int {
	ranks := make(map[Pair]int, len(raw))
	rank := 0
	for _, m := range raw {
		var p Pair
		switch v := m.(type) {
		case string:
			a, b, ok := strings.Cut(strings.TrimSpace(v), " ")
			if !ok || strings.HasPrefix(v, "#") {
				continue
			}
			p = Pair{A: a, B: b}
		case []any:
			if len(v) != 2 {
				continue
			}
			a, aok := v[0].(string)
			b, bok := v[1].(string)
			if !aok || !bok {
				continue
			}
			p = Pair{A: a, B: b}
		default:
			continue
		}
		if _, ok := ranks[p]; !ok {
			ranks[p] = rank
			rank++
		}
	}
	return ranks
}

// tokenContent accepts both the plain string and the AddedToken object form
// used by tokenizer_config.json.
func tokenContent(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["content"].(string)
		return s
	}
	return ""
}

func leadingSpecial(p hfPostProcessor) (int, bool) {
	if p.Type == "TemplateProcessing" && len(p.Single) > 0 && p.Single[0].SpecialToken != nil {
		if spec, ok := p.SpecialTokens[p.Single[0].SpecialToken.ID]; ok && len(spec.IDs) > 0 {
			return spec.IDs[0], true
		}
	}
	for _, sub := range p.Processors {
		if id, ok := leadingSpecial(sub); ok {
			return id, true
		}
	}
	return 0, false
}

func (t *HF) setSpecials(special []string) {
	t.special = sortSpecials(special)
	t.specialIDs = make(map[int]bool, len(special))
	for _, s := range special {
		t.specialIDs[t.vocab[s]] = true
	}
}

func (t *HF) configureScheme(norm *hfNormalizer, pre *hfPreTokenizer) {
	if pre != nil {
		if bl, ok := findPreTokenizer(*pre, "ByteLevel"); ok {
			t.scheme = schemeByteLevel
			t.byteEncoder, t.byteDecoder = bytesToUnicode()
			t.pattern = byteLevelPattern(*pre)
			t.prependSpace = bl.AddPrefixSpace != nil && *bl.AddPrefixSpace
			return
		}
		if ms, ok := findPreTokenizer(*pre, "Metaspace"); ok {
			t.scheme = schemeMetaspace
			t.prependSpace = ms.PrependScheme != "never" && (ms.AddPrefixSpace == nil || *ms.AddPrefixSpace)
			return
		}
	}
	t.scheme = schemeMetaspace
	if norm != nil {
		t.prependSpace = hasPrepend(*norm)
	}
}

func findPreTokenizer(p hfPreTokenizer, typ string) (hfPreTokenizer, bool) {
	if p.Type == typ {
		return p, true
	}
	for _, sub := range p.Pretokenizers {
		if found, ok := findPreTokenizer(sub, typ); ok {
			return found, true
		}
	}
	return hfPreTokenizer{}, false
}

func hasPrepend(n hfNormalizer) bool {
	if n.Type == "Prepend" && n.Prepend == metaspace {
		return true
	}
	for _, sub := range n.Normalizers {
		if hasPrepend(sub) {
			return true
		}
	}
	return false
}

func byteLevelPattern(pre hfPreTokenizer) *regexp.Regexp {
	pat := `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`
	if split, ok := findPreTokenizer(pre, "Split"); ok && split.Pattern.Regex != "" {
		pat = split.Pattern.Regex
	}
	// Lookaheads are not supported by RE2; use the llama.cpp equivalent.
	if strings.Contains(pat, `(?!\S)`) || strings.Contains(pat, "(?i:") {
		pat = `(?:'[sS]|'[tT]|'[rR][eE]|'[vV][eE]|'[mM]|'[lL][lL]|'[dD])|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+`
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return regexp.MustCompile(`\S+|\s+`)
	}
	return re
}

// Encode tokenizes text. Added tokens appearing verbatim map to their ids;
// everything else goes through BPE. The BOS id is prepended when the
// tokenizer is configured to add it.
func (t *HF) Encode(text string) ([]int, []string, error) {
	var ids []int
	if t.addBOS && t.bosID >= 0 {
		ids = append(ids, t.bosID)
	}
	for _, part := range splitSpecials(text, t.special) {
		if part.isSpecial {
			ids = append(ids, t.vocab[part.text])
			continue
		}
		var err error
		switch t.scheme {
		case schemeByteLevel:
			ids, err = t.encodeByteLevel(ids, part.text)
		default:
			ids, err = t.encodeMetaspace(ids, part.text)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	surfaces := make([]string, len(ids))
	for i, id := range ids {
		surfaces[i] = t.tokens[id]
	}
	return ids, surfaces, nil
}

func (t *HF) encodeMetaspace(ids []int, text string) ([]int, error) {
	norm := strings.ReplaceAll(text, " ", metaspace)
	if t.prependSpace {
		norm = metaspace + norm
	}
	for _, word := range splitMetaspace(norm) {
		for _, sym := range t.bpe(word) {
			if id, ok := t.vocab[sym]; ok {
				ids = append(ids, id)
				continue
			}
			if t.byteFallback {
				if out, ok := t.appendBytes(ids, sym); ok {
					ids = out
					continue
				}
			}
			if t.unkID < 0 {
				return nil, fmt.Errorf("unknown symbol %q and no <unk> token", sym)
			}
			ids = append(ids, t.unkID)
		}
	}
	return ids, nil
}

func (t *HF) appendBytes(ids []int, sym string) ([]int, bool) {
	start := len(ids)
	for i := 0; i < len(sym); i++ {
		id, ok := t.vocab[fmt.Sprintf("<0x%02X>", sym[i])]
		if !ok {
			return ids[:start], false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func (t *HF) encodeByteLevel(ids []int, text string) ([]int, error) {
	if t.prependSpace && !strings.HasPrefix(text, " ") {
		text = " " + text
	}
	for _, piece := range t.pattern.FindAllString(text, -1) {
		var b strings.Builder
		for i := 0; i < len(piece); i++ {
			b.WriteString(t.byteEncoder[piece[i]])
		}
		for _, sym := range t.bpe(b.String()) {
			id, ok := t.vocab[sym]
			if !ok {
				if t.unkID < 0 {
					return nil, fmt.Errorf("unknown symbol %q and no <unk> token", sym)
				}
				id = t.unkID
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *HF) bpe(word string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.cache[word]; ok {
		return v
	}
	var out []string
	if t.scores != nil {
		out = mergeByScore(splitRunes(word), t.vocab, t.scores)
	} else {
		out = mergeWord(splitRunes(word), t.ranks)
	}
	if len(t.cache) >= maxCacheEntries {
		clear(t.cache)
	}
	t.cache[word] = out
	return out
}

// Decode reassembles text from ids. Added special tokens are dropped and
// byte tokens are decoded back into raw bytes.
func (t *HF) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(t.tokens) {
			return "", fmt.Errorf("token id out of range: %d", id)
		}
		if t.specialIDs[id] {
			continue
		}
		tok := t.tokens[id]
		if t.scheme == schemeByteLevel {
			for _, r := range tok {
				if by, ok := t.byteDecoder[string(r)]; ok {
					b = append(b, by)
				} else {
					b = append(b, string(r)...)
				}
			}
			continue
		}
		if by, ok := parseByteToken(tok); ok {
			b = append(b, by)
			continue
		}
		b = append(b, strings.ReplaceAll(tok, metaspace, " ")...)
	}
	out := string(b)
	if t.prependSpace {
		out = strings.TrimPrefix(out, " ")
	}
	return out, nil
}

func (t *HF) IDToToken(id int) (string, bool) {
	if id < 0 || id >= len(t.tokens) {
		return "", false
	}
	return t.tokens[id], true
}

func (t *HF) TokenID(tok string) (int, bool) {
	id, ok := t.vocab[tok]
	return id, ok
}

func (t *HF) EOSTokenID() int { return t.eosID }
func (t *HF) BOSTokenID() int { return t.bosID }
func (t *HF) VocabSize() int  { return len(t.tokens) }

func parseByteToken(s string) (byte, bool) {
	if len(s) != 6 || !strings.HasPrefix(s, "<0x") || s[5] != '>' {
		return 0, false
	}
	var v byte
	for _, c := range s[3:5] {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = byte(c - '0')
		case c >= 'A' && c <= 'F':
			d = byte(c-'A') + 10
		case c >= 'a' && c <= 'f':
			d = byte(c-'a') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}
