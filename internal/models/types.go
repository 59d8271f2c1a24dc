package models

import (
	"database/sql/driver"
	"encoding/json"
)

// StringSlice is a custom type for storing string arrays as JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	return json.Unmarshal(asBytes(value), s)
}

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return json.Unmarshal(asBytes(value), j)
}

// asBytes normalizes driver values; the sqlite driver returns TEXT columns
// as string, other drivers as []byte.
func asBytes(value interface{}) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}
