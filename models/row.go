package models

import (
	"bytes"
	"encoding/json"
)

// Column names every verifier input row must carry.
const (
	FieldTitle     = "title"
	FieldDeveloper = "developer"
	FieldAppID     = "appId"
)

// Row is one record of a tabular input file, kept in header order.
type Row struct {
	Number int
	header []string
	values map[string]string
}

// NewRow pairs header names with values. Missing trailing values are empty.
func NewRow(number int, header, values []string) Row {
	m := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(values) {
			m[name] = values[i]
		} else {
			m[name] = ""
		}
	}
	h := make([]string, len(header))
	copy(h, header)
	return Row{Number: number, header: h, values: m}
}

// Get returns the value of a column and whether the column exists.
func (r Row) Get(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

func (r Row) Title() string     { return r.values[FieldTitle] }
func (r Row) Developer() string { return r.values[FieldDeveloper] }
func (r Row) AppID() string     { return r.values[FieldAppID] }

// Header returns the column names in input order.
func (r Row) Header() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Values returns the row's values in Header order.
func (r Row) Values() []string {
	out := make([]string, len(r.header))
	for i, name := range r.header {
		out[i] = r.values[name]
	}
	return out
}

// MarshalJSON encodes the row as an object whose keys keep the input order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.header {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
