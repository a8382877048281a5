package source

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// optFloat decodes a JSON number or numeric string. Null, empty and
// whitespace-only strings decode as missing.
type optFloat struct {
	v  float64
	ok bool
}

func (f *optFloat) UnmarshalJSON(b []byte) error {
	*f = optFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = optFloat{v: v, ok: true}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = optFloat{v: v, ok: true}
	return nil
}

func (f optFloat) ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.v
	return &v
}

// optString decodes any JSON scalar as trimmed text; null decodes as "".
// Numbers render in their shortest decimal form, so 840.0 decodes as "840".
type optString string

func (s *optString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected scalar, got %s", b[:1])
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = optString(strings.TrimSpace(v))
	case bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("false")):
		*s = optString(b)
	default:
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", b, err)
		}
		*s = optString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return nil
}

func (s optString) String() string { return string(s) }

// isObject reports whether raw holds a JSON object.
func isObject(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{'
}
