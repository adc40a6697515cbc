package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity es un entero que PATA a veces envía como número, a veces como
// string y a veces no envía. Cualquier valor que no se pueda leer vale 0.
type Quantity int64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			*q = Quantity(n)
		}
	case 't':
		*q = 1
	case 'f':
		return nil
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		*q = Quantity(math.Trunc(f))
	}
	return nil
}

func (q Quantity) Int64() int64 { return int64(q) }

// Text acepta strings, números o null y guarda la representación textual.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*t = Text(s)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return nil
	}
	*t = Text(data)
	return nil
}

func (t Text) String() string { return string(t) }
