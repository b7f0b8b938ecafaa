package dbtypes

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONDocument stores raw JSON in jsonb (Postgres) or text (SQLite) columns.
type JSONDocument []byte

func (d *JSONDocument) Scan(src any) error {
	if src == nil {
		*d = nil
		return nil
	}

	switch v := src.(type) {
	case string:
		*d = append((*d)[:0], v...)
	case []byte:
		*d = append((*d)[:0], v...)
	default:
		return fmt.Errorf("JSONDocument: unsupported Scan type %T", src)
	}
	if !json.Valid(*d) {
		return fmt.Errorf("JSONDocument: invalid json")
	}
	return nil
}

func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("JSONDocument: invalid json")
	}
	return string(d), nil
}

// MarshalJSON embeds the document as-is.
func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	if d == nil {
		return fmt.Errorf("JSONDocument: UnmarshalJSON on nil pointer")
	}
	*d = append((*d)[:0], data...)
	return nil
}

// Decode unmarshals the document into out.
func (d JSONDocument) Decode(out any) error {
	if len(d) == 0 || bytes.Equal(d, []byte("null")) {
		return fmt.Errorf("JSONDocument: empty document")
	}
	return json.Unmarshal(d, out)
}

// NewJSONDocument marshals v into a document.
func NewJSONDocument(v any) (JSONDocument, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONDocument(raw), nil
}
