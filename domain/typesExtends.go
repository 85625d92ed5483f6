package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a free-form object persisted as a JSON text column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	jsonBytes, err := json.Marshal(&m)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (m *JSONMap) Scan(v interface{}) error {
	if v == nil {
		*m = JSONMap{}
		return nil
	}
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	if jsonString == "" {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal([]byte(jsonString), m)
}
