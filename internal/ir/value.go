package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value kinds allowed in persisted
// reserve data: strings, integers, booleans, arrays and objects.
// There is no float and no null; both break byte-for-byte determinism.
type IRValue interface {
	irValue()
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Go string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// String returns the string stored under key, or an error naming the key.
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

// Int returns the integer stored under key, or an error naming the key.
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

// Bool returns the boolean stored under key, or an error naming the key.
func (obj IRObject) Bool(key string) (bool, error) {
	v, ok := obj[key]
	if !ok {
		return false, fmt.Errorf("missing field %q", key)
	}
	b, ok := v.(IRBool)
	if !ok {
		return false, fmt.Errorf("field %q: expected bool, got %T", key, v)
	}
	return bool(b), nil
}

// Array returns the array stored under key, or an error naming the key.
func (obj IRObject) Array(key string) (IRArray, error) {
	v, ok := obj[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	arr, ok := v.(IRArray)
	if !ok {
		return nil, fmt.Errorf("field %q: expected array, got %T", key, v)
	}
	return arr, nil
}

// UnmarshalJSON implements json.Unmarshaler for IRObject.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected object, got %T", v)
	}
	*obj = o
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for IRArray.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	a, ok := v.(IRArray)
	if !ok {
		return fmt.Errorf("expected array, got %T", v)
	}
	*arr = a
	return nil
}

// MarshalJSON implements json.Marshaler for IRObject using canonical form.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalJSON implements json.Marshaler for IRArray using canonical form.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(arr)
}

// UnmarshalIRValue decodes JSON into an IRValue.
// Rejects null and floats; integers are decoded through json.Number so
// values above 2^53 keep full precision.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return FromAny(raw)
}

// FromAny converts a decoded Go value (as produced by encoding/json with
// UseNumber, yaml.v3 or CUE's Decode) into an IRValue.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not allowed")
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("integer out of int64 range: %s", s)
		}
		return IRInt(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not allowed: %v", val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
