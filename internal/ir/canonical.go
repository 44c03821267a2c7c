package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
// It is the only serialization used for config hashes, tick records and
// golden traces.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. No JSON floats: real Values are encoded as FormatReal strings
//  5. No null
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case Value:
		return marshalCanonicalValue(buf, val)
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonicalString(buf, s); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]Value:
		keys := sortedKeys(val)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := marshalCanonicalValue(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case map[string]any:
		keys := sortedKeys(val)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float64, float32:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// marshalCanonicalValue encodes a Value by kind: bool and int as JSON
// literals, enum as its ordinal, real as a FormatReal string.
func marshalCanonicalValue(buf *bytes.Buffer, v Value) error {
	switch v.Kind() {
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.AsBool()))
	case KindInt, KindEnum:
		buf.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case KindReal:
		return marshalCanonicalString(buf, FormatReal(v.AsReal()))
	default:
		return fmt.Errorf("invalid value kind %s", v.Kind())
	}
	return nil
}

// DecodeValue is the inverse of the canonical Value encoding, given the
// declared kind. raw is a value produced by json.Unmarshal into any.
func DecodeValue(k Kind, raw any) (Value, error) {
	switch k {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("expected bool, got %T", raw)
		}
		return Bool(b), nil
	case KindInt, KindEnum:
		var n int64
		switch x := raw.(type) {
		case json.Number:
			parsed, err := x.Int64()
			if err != nil {
				return Value{}, err
			}
			n = parsed
		case float64:
			n = int64(x)
		default:
			return Value{}, fmt.Errorf("expected integer, got %T", raw)
		}
		if k == KindEnum {
			return Enum(int(n)), nil
		}
		return Int(n), nil
	case KindReal:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected real string, got %T", raw)
		}
		x, err := ParseReal(s)
		if err != nil {
			return Value{}, err
		}
		return Real(x), nil
	}
	return Value{}, fmt.Errorf("invalid kind %s", k)
}

// marshalCanonicalString writes a canonical JSON string with NFC
// normalization. Only control characters, backslash and quote are escaped;
// U+2028 and U+2029 stay literal.
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal runes.
// An escape preceded by an odd run of backslashes is literal text
// and is kept.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+6 <= len(data) && bytes.HasPrefix(data[i:], []byte(`\u202`)) && (data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's string comparison uses UTF-8 bytes, which orders supplementary-plane
// characters differently.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// NormalizeID returns the NFC form of an identifier. Variable and system
// names are normalized once at compile time so lookups compare bytes.
func NormalizeID(id string) string {
	return norm.NFC.String(id)
}
