package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// The output is byte-compatible with GoJSON for the record types geocluster
// exports; it exists for callers that want no third-party encoder on the
// write path.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used by export when none is configured.
var Default Codec = GoJSON{}

// MarshalIndent encodes the value as indented JSON.
func (JSON) MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}
