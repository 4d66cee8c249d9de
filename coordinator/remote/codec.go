package remote

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codec carries the core types as JSON, the payloads inside them are already opaque strings.
type codec struct{}

var _ encoding.Codec = codec{}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (codec) Name() string {
	return "json"
}
