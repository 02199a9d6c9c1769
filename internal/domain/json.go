// Package domain defines the persistence models and configuration value
// objects for the restaurant operations backend. These types are mapped with
// GORM and are shared across the repository and service layers.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONText stores pre-encoded JSON verbatim in a TEXT column. It is used for
// columns whose shape varies per row (intent payloads, cart items) so the
// encoder/decoder stays at the edge that knows the concrete type.
type JSONText json.RawMessage

// Value implements driver.Valuer. Empty values are stored as an empty JSON
// object so downstream consumers never see NULL payloads.
func (j JSONText) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	if !json.Valid(j) {
		return nil, errors.New("domain: JSONText holds invalid JSON")
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = JSONText("{}")
		return nil
	case string:
		*j = JSONText([]byte(v))
		return nil
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*j = JSONText(buf)
		return nil
	default:
		return fmt.Errorf("domain: cannot scan %T into JSONText", src)
	}
}

// MarshalJSON emits the stored JSON as-is.
func (j JSONText) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return j, nil
}

// UnmarshalJSON keeps the raw bytes.
func (j *JSONText) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("domain: UnmarshalJSON on nil JSONText")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	*j = buf
	return nil
}

// MustJSON encodes v, panicking on failure. It is reserved for values the
// caller fully controls (typed payloads, audit details).
func MustJSON(v any) JSONText {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("domain: encode %T: %v", v, err))
	}
	return JSONText(b)
}
