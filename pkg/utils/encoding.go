package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// EncodeJSON encodes any value to indented JSON bytes
func EncodeJSON[T any](value T) ([]byte, error) {
	return json.MarshalIndent(value, "", "  ")
}

// DecodeJSON decodes JSON bytes to the specified type
func DecodeJSON[T any](data []byte) (T, error) {
	var result T
	if len(data) == 0 {
		return result, fmt.Errorf("JSON data is empty")
	}

	err := json.Unmarshal(data, &result)
	if err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return result, nil
}

// ReadJSONFile reads and decodes a JSON file
func ReadJSONFile[T any](path string) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, err
	}
	return DecodeJSON[T](data)
}

// WriteJSONFile encodes value and writes it to path with owner-only permissions
func WriteJSONFile[T any](path string, value T) error {
	data, err := EncodeJSON(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
