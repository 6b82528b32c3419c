package gguf

import "fmt"

// KV is the metadata table of a GGUF file.
type KV map[string]Value

func (kv KV) String(key string) (string, bool) {
	s, ok := kv[key].Value.(string)
	return s, ok
}

func (kv KV) Bool(key string) (bool, bool) {
	b, ok := kv[key].Value.(bool)
	return b, ok
}

// Uint64 accepts any non-negative integer value.
func (kv KV) Uint64(key string) (uint64, bool) {
	switch t := kv[key].Value.(type) {
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	}
	if i, ok := kv.Int64(key); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

// Int64 accepts any integer value that fits.
func (kv KV) Int64(key string) (int64, bool) {
	switch t := kv[key].Value.(type) {
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t <= 1<<63-1 {
			return int64(t), true
		}
	}
	return 0, false
}

func (kv KV) Float64(key string) (float64, bool) {
	switch t := kv[key].Value.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// Array returns the array stored under key when every element is a T.
func Array[T any](kv KV, key string) ([]T, bool) {
	arr, ok := kv[key].Value.(ArrayValue)
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(arr.Values))
	for _, item := range arr.Values {
		v, ok := item.(T)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// Format renders a value for display. Arrays longer than limit are
// summarised.
func (v Value) Format(limit int) string {
	arr, ok := v.Value.(ArrayValue)
	if !ok {
		if s, ok := v.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprint(v.Value)
	}
	if len(arr.Values) > limit {
		return fmt.Sprintf("[%s x %d]", arr.ElemType, len(arr.Values))
	}
	return fmt.Sprint(arr.Values)
}
