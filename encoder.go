package supplyq

import (
	"github.com/bytedance/sonic"
)

// Encoder defines the interface for parameter and result serialization.
type Encoder interface {
	// Encode serializes a value to bytes.
	Encode(any) ([]byte, error)
	// Decode deserializes bytes to a value.
	Decode([]byte, any) error
}

// JSONEncoder is the default implementation of Encoder using sonic with
// standard-library compatible output (sorted map keys, HTML escaping).
type JSONEncoder struct{}

// Encode serializes a value to JSON.
func (*JSONEncoder) Encode(v any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

// Decode deserializes JSON bytes. Numbers decode as float64 like encoding/json.
func (*JSONEncoder) Decode(data []byte, v any) error {
	return sonic.ConfigStd.Unmarshal(data, v)
}

// DecodeResult decodes a stored result payload. Empty input yields a nil Result.
func DecodeResult(data []byte) (Result, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var r Result
	if err := (&JSONEncoder{}).Decode(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}
