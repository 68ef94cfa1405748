package grpcpeerclient

import (
	"bytes"
	"encoding/gob"
)

const dagSliceCodecName = "casper-dagslice"

// dagSliceCodec is this client's own wire codec, registered under a
// content-subtype so grpc negotiates it instead of protobuf: there is no
// .proto schema in this tree to generate message types from, and hand
// authoring protobuf-generated code would mean fabricating what protoc is
// supposed to produce. gob round-trips the plain structs this package
// streams without needing a schema, which is all this internal RPC needs.
type dagSliceCodec struct{}

func (dagSliceCodec) Name() string { return dagSliceCodecName }

func (dagSliceCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (dagSliceCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
