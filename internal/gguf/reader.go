package gguf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type reader struct {
	r    *bufio.Reader
	off  int64
	size int64
	buf  [8]byte
}

func newReader(rd io.Reader, size int64) *reader {
	return &reader{r: bufio.NewReader(rd), size: size}
}

func (r *reader) remaining() int64 {
	if r.size <= 0 {
		return math.MaxInt64
	}
	return r.size - r.off
}

// checkCount rejects element counts that cannot fit in the rest of the
// input given a minimum encoded size per element.
func (r *reader) checkCount(n uint64, minSize int64) error {
	if n > uint64(r.remaining()/max(minSize, 1)) {
		return fmt.Errorf("count %d exceeds input size", n)
	}
	return nil
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	var b []byte
	if n <= len(r.buf) {
		b = r.buf[:n]
	} else {
		b = make([]byte, n)
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	r.off += int64(n)
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u64()
	if err != nil {
		return "", err
	}
	if n > uint64(r.remaining()) {
		return "", fmt.Errorf("string length %d exceeds input size", n)
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) value(t ValueType) (any, error) {
	switch t {
	case TypeUint8:
		return r.u8()
	case TypeInt8:
		v, err := r.u8()
		return int8(v), err
	case TypeUint16:
		return r.u16()
	case TypeInt16:
		v, err := r.u16()
		return int16(v), err
	case TypeUint32:
		return r.u32()
	case TypeInt32:
		v, err := r.u32()
		return int32(v), err
	case TypeUint64:
		return r.u64()
	case TypeInt64:
		v, err := r.u64()
		return int64(v), err
	case TypeFloat32:
		v, err := r.u32()
		return math.Float32frombits(v), err
	case TypeFloat64:
		v, err := r.u64()
		return math.Float64frombits(v), err
	case TypeBool:
		v, err := r.u8()
		return v != 0, err
	case TypeString:
		return r.str()
	case TypeArray:
		return r.array()
	default:
		return nil, fmt.Errorf("unsupported value type %d", uint32(t))
	}
}

func (r *reader) array() (ArrayValue, error) {
	et, err := r.u32()
	if err != nil {
		return ArrayValue{}, err
	}
	n, err := r.u64()
	if err != nil {
		return ArrayValue{}, err
	}
	if err := r.checkCount(n, 1); err != nil {
		return ArrayValue{}, err
	}
	out := ArrayValue{ElemType: ValueType(et), Values: make([]any, 0, n)}
	for range n {
		v, err := r.value(out.ElemType)
		if err != nil {
			return ArrayValue{}, err
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}

func (r *reader) tensorInfo() (TensorInfo, error) {
	var t TensorInfo
	var err error
	if t.Name, err = r.str(); err != nil {
		return t, err
	}
	nDim, err := r.u32()
	if err != nil {
		return t, err
	}
	if nDim > 8 {
		return t, fmt.Errorf("tensor %s has %d dimensions", t.Name, nDim)
	}
	t.Dims = make([]uint64, nDim)
	for d := range t.Dims {
		if t.Dims[d], err = r.u64(); err != nil {
			return t, err
		}
	}
	typ, err := r.u32()
	if err != nil {
		return t, err
	}
	t.Type = TensorType(typ)
	if t.Offset, err = r.u64(); err != nil {
		return t, err
	}
	return t, nil
}
