package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRString, IRInt, IRBool, IRArray, and IRObject implement this.
// There is no float and no null: records and transition arguments are
// hashed and compared byte-for-byte, and both break that.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// StringArray converts a string slice into an IRArray of IRString.
func StringArray(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

// IntArray converts a uint64 slice into an IRArray of IRInt.
func IntArray(ns []uint64) IRArray {
	arr := make(IRArray, len(ns))
	for i, n := range ns {
		arr[i] = IRInt(int64(n))
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for supplementary
// plane characters.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// String returns the string stored under key.
func (obj IRObject) String(key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return string(s), nil
}

// Int returns the integer stored under key.
func (obj IRObject) Int(key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, ok := v.(IRInt)
	if !ok {
		return 0, fmt.Errorf("field %q: expected int, got %T", key, v)
	}
	return int64(n), nil
}

// Strings returns the string array stored under key.
func (obj IRObject) Strings(key string) ([]string, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	arr, ok := v.(IRArray)
	if !ok {
		return nil, fmt.Errorf("field %q: expected array, got %T", key, v)
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.(IRString)
		if !ok {
			return nil, fmt.Errorf("field %q[%d]: expected string, got %T", key, i, elem)
		}
		out[i] = string(s)
	}
	return out, nil
}

// Address returns the address stored under key as hex.
func (obj IRObject) Address(key string) (Address, error) {
	s, err := obj.String(key)
	if err != nil {
		return Address{}, err
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return Address{}, fmt.Errorf("field %q: %w", key, err)
	}
	return addr, nil
}

// UnmarshalJSON implements json.Unmarshaler for IRObject.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(IRObject, len(raw))
	for k, v := range raw {
		val, err := unmarshalIRValue(v)
		if err != nil {
			return fmt.Errorf("IRObject key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for IRArray.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*arr = make(IRArray, len(raw))
	for i, v := range raw {
		val, err := unmarshalIRValue(v)
		if err != nil {
			return fmt.Errorf("IRArray index %d: %w", i, err)
		}
		(*arr)[i] = val
	}
	return nil
}

// unmarshalIRValue decodes a JSON value into the matching IRValue type.
// Floats and null are rejected.
func unmarshalIRValue(data []byte) (IRValue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return IRString(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return IRBool(b), nil

	case 'n':
		return nil, fmt.Errorf("null is forbidden")

	case '[':
		var arr IRArray
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		return arr, nil

	case '{':
		var obj IRObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden: %s", string(data))
		}
		return IRInt(i), nil
	}
}

// MarshalJSON implements json.Marshaler for IRObject using canonical encoding.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// ToAny converts an IRValue to plain Go values (string, int64, bool,
// []any, map[string]any). Used for YAML/JSON presentation.
func ToAny(v IRValue) any {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
