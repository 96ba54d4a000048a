package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Values maps field names to their typed values: string for TypeString,
// int64 for TypeInt, []byte for TypeBytes, []UOMeEntry / []SettlementEntry
// for the entry list types.
type Values map[string]any

// Record is one validated protocol message. It exists only for the duration
// of a single request/response exchange and is never persisted.
type Record struct {
	Kind   Kind
	Dir    Dir
	Values Values
}

// Make validates that every field the schema declares for the direction is
// present in values and carries the declared type. Extra values are ignored
// so a handler can pass a superset (e.g. stored fields plus wire fields).
func Make(kind Kind, dir Dir, values Values) (Record, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return Record{}, err
	}

	checked := make(Values, len(schema.fields(dir)))
	for _, f := range schema.fields(dir) {
		v, ok := values[f.Name]
		if !ok {
			return Record{}, &SchemaError{Kind: kind, Field: f.Name}
		}
		if !typeMatches(f.Type, v) {
			return Record{}, &TypeMismatchError{Kind: kind, Field: f.Name, Want: f.Type, Got: fmt.Sprintf("%T", v)}
		}
		checked[f.Name] = v
	}

	return Record{Kind: kind, Dir: dir, Values: checked}, nil
}

func typeMatches(t FieldType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeInt:
		_, ok := v.(int64)
		return ok
	case TypeBytes:
		_, ok := v.([]byte)
		return ok
	case TypeUOMeEntries:
		_, ok := v.([]UOMeEntry)
		return ok
	case TypeSettlementEntries:
		_, ok := v.([]SettlementEntry)
		return ok
	default:
		return false
	}
}

// Encode serializes the record's declared fields as a JSON object. Binary
// fields are base64 text on the wire; entry lists are JSON arrays.
func Encode(rec Record) ([]byte, error) {
	schema, err := SchemaFor(rec.Kind)
	if err != nil {
		return nil, err
	}

	body := make(map[string]any, len(schema.fields(rec.Dir)))
	for _, f := range schema.fields(rec.Dir) {
		v := rec.Values[f.Name]
		if f.Type == TypeBytes {
			v = base64.StdEncoding.EncodeToString(v.([]byte))
		}
		body[f.Name] = v
	}

	return json.Marshal(body)
}

// Decode is the inverse of Encode. Malformed bytes fail with DecodeError;
// a missing or mistyped declared field fails with SchemaError or
// TypeMismatchError, the same taxonomy as Make.
func Decode(kind Kind, dir Dir, data []byte) (Record, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return Record{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Record{}, &DecodeError{Kind: kind, Err: err}
	}

	values := make(Values, len(schema.fields(dir)))
	for _, f := range schema.fields(dir) {
		rawValue, ok := raw[f.Name]
		if !ok {
			return Record{}, &SchemaError{Kind: kind, Field: f.Name}
		}
		v, err := decodeField(kind, f, rawValue)
		if err != nil {
			return Record{}, err
		}
		values[f.Name] = v
	}

	return Record{Kind: kind, Dir: dir, Values: values}, nil
}

func decodeField(kind Kind, f Field, raw json.RawMessage) (any, error) {
	mismatch := func() error {
		return &TypeMismatchError{Kind: kind, Field: f.Name, Want: f.Type, Got: "json " + jsonTypeName(raw)}
	}

	switch f.Type {
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, mismatch()
		}
		return s, nil

	case TypeInt:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, mismatch()
		}
		i, err := n.Int64()
		if err != nil {
			return nil, mismatch()
		}
		return i, nil

	case TypeBytes:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, mismatch()
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, &DecodeError{Kind: kind, Err: fmt.Errorf("field %q is not valid base64: %w", f.Name, err)}
		}
		return b, nil

	case TypeUOMeEntries:
		var entries []UOMeEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, mismatch()
		}
		return entries, nil

	case TypeSettlementEntries:
		var entries []SettlementEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, mismatch()
		}
		return entries, nil

	default:
		return nil, mismatch()
	}
}

func jsonTypeName(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "empty"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// Typed accessors. Records produced by Make or Decode have already been
// validated, so a wrong-type access returns the zero value.

func (r Record) String(name string) string {
	s, _ := r.Values[name].(string)
	return s
}

func (r Record) Int(name string) int64 {
	i, _ := r.Values[name].(int64)
	return i
}

func (r Record) Bytes(name string) []byte {
	b, _ := r.Values[name].([]byte)
	return b
}

func (r Record) UOMeEntries(name string) []UOMeEntry {
	e, _ := r.Values[name].([]UOMeEntry)
	return e
}

func (r Record) SettlementEntries(name string) []SettlementEntry {
	e, _ := r.Values[name].([]SettlementEntry)
	return e
}
