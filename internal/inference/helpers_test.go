package inference

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	testVocab = 300
	testEOS   = 2
)

type forwardCall struct {
	tokens []int
	offset int
}

// scriptedModel returns logits from a function of the step within the
// current turn and the last fed token. It enforces the offset contract.
type scriptedModel struct {
	logits  func(step, last int) []float32
	failAt  int
	panicAt int
	calls   []forwardCall
	step    int
	fed     int
}

func newScriptedModel(fn func(step, last int) []float32) *scriptedModel {
	return &scriptedModel{logits: fn, failAt: -1, panicAt: -1}
}

func (m *scriptedModel) Forward(tokens []int, offset int) ([]float32, error) {
	m.calls = append(m.calls, forwardCall{tokens: append([]int(nil), tokens...), offset: offset})
	if offset == 0 {
		m.step = 0
		m.fed = 0
	} else {
		if offset != m.fed {
			return nil, fmt.Errorf("offset %d, expected %d", offset, m.fed)
		}
		if len(tokens) != 1 {
			return nil, fmt.Errorf("incremental call with %d tokens", len(tokens))
		}
	}
	step := m.step
	m.step++
	m.fed += len(tokens)
	if step == m.failAt {
		return nil, errors.New("device lost")
	}
	if step == m.panicAt {
		panic("kernel fault")
	}
	return m.logits(step, tokens[len(tokens)-1]), nil
}

func (m *scriptedModel) offsets() []int {
	out := make([]int, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.offset
	}
	return out
}

// peak is a logits vector whose only non-zero entry is id.
func peak(id int) []float32 {
	v := make([]float32, testVocab)
	v[id] = 1
	return v
}

// sequence peaks at ids[step], then at the last id forever.
func sequence(ids ...int) func(step, last int) []float32 {
	return func(step, _ int) []float32 {
		return peak(ids[min(step, len(ids)-1)])
	}
}

// wavy produces a spread-out distribution that depends on the fed token.
func wavy(step, last int) []float32 {
	v := make([]float32, testVocab)
	for i := range v {
		v[i] = float32(3 * math.Sin(float64(i*7+last*13+step)))
	}
	return v
}

// byteTokenizer maps each byte b to id b+3; ids 0..2 are <unk>, <s>, </s>.
type byteTokenizer struct {
	failOn string
}

func (t byteTokenizer) Encode(text string) ([]int, []string, error) {
	if t.failOn != "" && strings.Contains(text, t.failOn) {
		return nil, nil, errors.New("unencodable input")
	}
	ids := make([]int, 0, len(text))
	surfaces := make([]string, 0, len(text))
	for i := 0; i < len(text); i++ {
		ids = append(ids, int(text[i])+3)
		surfaces = append(surfaces, t.surface(text[i]))
	}
	return ids, surfaces, nil
}

func (byteTokenizer) surface(b byte) string {
	switch {
	case b == ' ':
		return SpacePlaceholder
	case b < 0x20 || b >= 0x7f:
		return fmt.Sprintf("<0x%02X>", b)
	default:
		return string(rune(b))
	}
}

func (t byteTokenizer) IDToToken(id int) (string, bool) {
	switch {
	case id == 0:
		return "<unk>", true
	case id == 1:
		return "<s>", true
	case id == testEOS:
		return "</s>", true
	case id >= 3 && id < 259:
		return t.surface(byte(id - 3)), true
	default:
		return "", false
	}
}

func (byteTokenizer) EOSTokenID() int { return testEOS }

func tokenOf(b byte) int { return int(b) + 3 }

func idsOf(s string) []int {
	ids, _, _ := byteTokenizer{}.Encode(s)
	return ids
}
