package service

import (
	"github.com/bytedance/sonic"
)

// JSONCodec encodes plain Go structs as JSON with sonic. It is registered
// under the name "json", replacing Connect's protobuf-only JSON codec, so the
// Connect protocol (application/json) carries the ledger's own types.
type JSONCodec struct{}

var jsonAPI = sonic.Config{
	SortMapKeys: true,
}.Froze()

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return jsonAPI.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	// An empty body decodes as the zero message.
	if len(data) == 0 {
		return nil
	}
	return jsonAPI.Unmarshal(data, msg)
}
