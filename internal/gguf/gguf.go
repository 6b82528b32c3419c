// Package gguf reads the header of GGUF model files: the metadata key/value
// table and the tensor directory. Tensor data is never loaded.
package gguf

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const magic = "GGUF"

// ErrNotGGUF is returned for input that does not start with the GGUF magic.
var ErrNotGGUF = errors.New("not a GGUF file")

type ValueType uint32

const (
	TypeUint8 ValueType = iota
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeFloat32
	TypeBool
	TypeString
	TypeArray
	TypeUint64
	TypeInt64
	TypeFloat64
)

var valueTypeNames = [...]string{"u8", "i8", "u16", "i16", "u32", "i32", "f32", "bool", "string", "array", "u64", "i64", "f64"}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

type ArrayValue struct {
	ElemType ValueType
	Values   []any
}

type Value struct {
	Type  ValueType
	Value any
}

type Header struct {
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

// TensorType is the ggml storage type of a tensor.
type TensorType uint32

var tensorTypeNames = [...]string{
	"F32", "F16", "Q4_0", "Q4_1", "Q4_2", "Q4_3", "Q5_0", "Q5_1", "Q8_0", "Q8_1",
	"Q2_K", "Q3_K", "Q4_K", "Q5_K", "Q6_K", "Q8_K", "I8", "I16", "I32", "I64", "F64",
}

func (t TensorType) String() string {
	if int(t) < len(tensorTypeNames) {
		return tensorTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

type TensorInfo struct {
	Name   string
	Dims   []uint64
	Type   TensorType
	Offset uint64
}

// Elements is the number of values in the tensor.
func (t TensorInfo) Elements() uint64 {
	n := uint64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// File is a decoded GGUF header.
type File struct {
	Path       string
	Header     Header
	KV         KV
	Tensors    []TensorInfo
	Alignment  uint64
	DataOffset uint64
}

// Open reads the header of the GGUF file at path.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	st, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	f, err := Read(fh, st.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Read decodes a GGUF header from r. size bounds string and array lengths;
// pass a value <= 0 when it is unknown.
func Read(rd io.Reader, size int64) (*File, error) {
	r := newReader(rd, size)

	m, err := r.readN(4)
	if err != nil {
		return nil, err
	}
	if string(m) != magic {
		return nil, fmt.Errorf("%w: magic %q", ErrNotGGUF, string(m))
	}

	var h Header
	if h.Version, err = r.u32(); err != nil {
		return nil, err
	}
	if h.Version < 2 {
		return nil, fmt.Errorf("unsupported GGUF version %d", h.Version)
	}
	if h.TensorCount, err = r.u64(); err != nil {
		return nil, err
	}
	if h.KVCount, err = r.u64(); err != nil {
		return nil, err
	}
	if err := r.checkCount(h.KVCount, 12); err != nil {
		return nil, fmt.Errorf("kv count: %w", err)
	}
	if err := r.checkCount(h.TensorCount, 24); err != nil {
		return nil, fmt.Errorf("tensor count: %w", err)
	}

	kv := make(KV, h.KVCount)
	for i := range h.KVCount {
		key, err := r.str()
		if err != nil {
			return nil, fmt.Errorf("read key %d: %w", i, err)
		}
		vt, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("read value type for %s: %w", key, err)
		}
		val, err := r.value(ValueType(vt))
		if err != nil {
			return nil, fmt.Errorf("read value for %s: %w", key, err)
		}
		kv[key] = Value{Type: ValueType(vt), Value: val}
	}

	tensors := make([]TensorInfo, 0, h.TensorCount)
	for i := range h.TensorCount {
		t, err := r.tensorInfo()
		if err != nil {
			return nil, fmt.Errorf("read tensor %d: %w", i, err)
		}
		tensors = append(tensors, t)
	}

	alignment := uint64(32)
	if u, ok := kv.Uint64("general.alignment"); ok && u > 0 {
		alignment = u
	}

	return &File{
		Header:     h,
		KV:         kv,
		Tensors:    tensors,
		Alignment:  alignment,
		DataOffset: align(uint64(r.off), alignment),
	}, nil
}

// Architecture is general.architecture, e.g. "llama".
func (f *File) Architecture() string {
	s, _ := f.KV.String("general.architecture")
	return s
}

// ContextLength is the trained context length of the architecture.
func (f *File) ContextLength() (int, bool) {
	arch := f.Architecture()
	if arch == "" {
		return 0, false
	}
	n, ok := f.KV.Uint64(arch + ".context_length")
	return int(n), ok && n > 0
}

// ParamCount sums the elements of every tensor.
func (f *File) ParamCount() uint64 {
	var n uint64
	for _, t := range f.Tensors {
		n += t.Elements()
	}
	return n
}

func align(offset, alignment uint64) uint64 {
	if alignment == 0 {
		return offset
	}
	if rem := offset % alignment; rem != 0 {
		return offset + alignment - rem
	}
	return offset
}
