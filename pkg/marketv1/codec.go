package marketv1

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// Codec replaces connect's protojson codec under the "json" name so plain
// structs can be used as messages.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}

// WithJSON configures a handler or client to speak this package's JSON.
func WithJSON() connect.Option {
	return connect.WithCodec(Codec{})
}
