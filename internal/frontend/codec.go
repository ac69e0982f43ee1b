package frontend

import (
	"encoding/json"
	"fmt"
)

// jsonCodec is a grpc/encoding.Codec that marshals the plain Go structs in
// wire.go as JSON instead of protobuf wire format. No protobuf codegen is
// available in this repository, so every request and response type here is
// a hand-written struct rather than a generated .pb.go message.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("frontend: marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("frontend: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return "json" }
