package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB maps a jsonb column onto a Go value. A nil Data is stored as SQL NULL.
type JSONB[T any] struct {
	Data T
}

func NewJSONB[T any](v T) JSONB[T] { return JSONB[T]{Data: v} }

func (j JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	// lib/pq sends []byte as bytea, so hand it text.
	return string(b), nil
}

func (j *JSONB[T]) Scan(src any) error {
	var zero T
	switch v := src.(type) {
	case nil:
		j.Data = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	}
	return fmt.Errorf("cannot scan %T into JSONB", src)
}

func (j JSONB[T]) MarshalJSON() ([]byte, error) { return json.Marshal(j.Data) }

func (j *JSONB[T]) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &j.Data) }
