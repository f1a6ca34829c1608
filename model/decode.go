package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
)

// ErrUnsupportedDocument is returned by Decode when the input is neither a
// JSON array nor an object with a "data" array.
var ErrUnsupportedDocument = errors.New("model: expected a JSON array or an object with a data array")

// Decode parses a city document. Both a bare array and the upstream
// envelope {"data": [...]} are accepted.
func Decode(data []byte) ([]City, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnsupportedDocument
	}

	switch data[0] {
	case '[':
		var cities []City
		if err := gojson.Unmarshal(data, &cities); err != nil {
			return nil, fmt.Errorf("model: decode array: %w", err)
		}
		return cities, nil
	case '{':
		var env struct {
			Data []City `json:"data"`
		}
		if err := gojson.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("model: decode envelope: %w", err)
		}
		if env.Data == nil {
			return nil, ErrUnsupportedDocument
		}
		return env.Data, nil
	default:
		return nil, ErrUnsupportedDocument
	}
}

// DecodeReader reads r fully and decodes it with Decode.
func DecodeReader(r io.Reader) ([]City, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
