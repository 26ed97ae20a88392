package scanners

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// Decode unmarshals raw into a generic value, using json.Number for numbers.
// Bytes that are not JSON come back as a plain string so text-only tools
// still normalize.
func Decode(raw json.RawMessage) any {
	if IsEmpty(raw) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	// "80/tcp open http" starts with a valid number; anything trailing the
	// first value means the payload was text all along.
	if _, err := dec.Token(); err != io.EOF {
		return string(raw)
	}
	return v
}

// Lookup walks nested objects by key. Integer-looking keys index into arrays.
func Lookup(v any, path ...string) any {
	cur := v
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[key]
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// FirstString returns the first non-empty string found at any of the keys.
func FirstString(v any, keys ...string) string {
	for _, k := range keys {
		if s := String(Lookup(v, strings.Split(k, ".")...)); s != "" {
			return s
		}
	}
	return ""
}

// String renders scalars as text; objects and arrays yield "".
func String(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Float reads a numeric value that may have been encoded as a string.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// Bool reads a truthy value; strings like "true"/"yes"/"1" count.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "detected":
			return true
		}
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	}
	return false
}

// Strings reads either a JSON array of scalars or a comma separated string.
func Strings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := String(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

// List returns v as an array, or the first array found under keys when v is
// an object.
func List(v any, keys ...string) ([]any, bool) {
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	for _, k := range keys {
		if arr, ok := Lookup(v, strings.Split(k, ".")...).([]any); ok {
			return arr, true
		}
	}
	return nil, false
}

// Raw re-encodes a decoded value for use as evidence.
func Raw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
