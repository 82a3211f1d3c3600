package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"unicode/utf8"
)

// ErrMalformedText is returned for input that is not valid UTF-8 or that
// carries a \u escape for half of a surrogate pair.
var ErrMalformedText = errors.New("storage: malformed UTF-8 or unpaired surrogate escape")

// member is one key/value pair of a decoded object.
type member struct {
	key   string
	value any
}

// object keeps members in first-seen key order. A repeated key replaces the
// earlier value in place.
type object struct {
	members []member
	index   map[string]int
}

func (o *object) set(k string, v any) {
	if i, ok := o.index[k]; ok {
		o.members[i].value = v
		return
	}
	o.index[k] = len(o.members)
	o.members = append(o.members, member{key: k, value: v})
}

// Pretty re-encodes a single JSON document with four-space indentation.
// Object key order and number literals are kept exactly as received, string
// escapes are normalized so non-ASCII text is written as-is, and HTML
// characters are not escaped. For duplicate keys the last value wins at the
// position of the first.
func Pretty(raw []byte) ([]byte, error) {
	if !ValidText(raw) {
		return nil, ErrMalformedText
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("storage: trailing data after JSON value")
	}

	var compact bytes.Buffer
	enc := json.NewEncoder(&compact)
	enc.SetEscapeHTML(false)
	if err := writeValue(&compact, enc, v); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		obj := &object{index: map[string]int{}}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			k, _ := kt.(string)
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.set(k, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, errors.New("storage: unexpected delimiter " + d.String())
}

func writeValue(buf *bytes.Buffer, enc *json.Encoder, v any) error {
	switch v := v.(type) {
	case *object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, enc, m.key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeValue(buf, enc, m.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, enc, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case string:
		return writeString(buf, enc, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	}
	return nil
}

// writeString encodes s through enc, which writes into buf, and drops the
// newline Encode appends.
func writeString(buf *bytes.Buffer, enc *json.Encoder, s string) error {
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// ValidText reports whether raw is valid UTF-8 and every \u escape in it that
// names a surrogate is part of a high/low pair. encoding/json would otherwise
// replace both kinds of defect with U+FFFD.
func ValidText(raw []byte) bool {
	if !utf8.Valid(raw) {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			continue
		}
		if raw[i+1] != 'u' {
			i++ // skip the escaped byte so `\\u` is not read as an escape
			continue
		}
		r, ok := hex4(raw, i+2)
		if !ok {
			i++
			continue
		}
		switch {
		case r >= 0xDC00 && r <= 0xDFFF:
			return false
		case r >= 0xD800 && r <= 0xDBFF:
			j := i + 6
			if j+1 >= len(raw) || raw[j] != '\\' || raw[j+1] != 'u' {
				return false
			}
			lo, ok := hex4(raw, j+2)
			if !ok || lo < 0xDC00 || lo > 0xDFFF {
				return false
			}
			i = j + 5
		default:
			i += 5
		}
	}
	return true
}

func hex4(raw []byte, at int) (rune, bool) {
	if at+4 > len(raw) {
		return 0, false
	}
	n, err := strconv.ParseUint(string(raw[at:at+4]), 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
