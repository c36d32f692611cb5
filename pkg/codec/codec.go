// Package codec provides serialization for session cache records.
// Records are stored as bytes in the session storage backend, so every value
// passes through a Codec on write and read.
//
// Package codec 为会话缓存记录提供序列化功能。
// 记录以字节形式保存在会话存储后端中，因此每个值在写入和读取时都会经过Codec。
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	shoperrors "github.com/yourusername/shopsync/pkg/errors"
)

// Codec defines the interface for encoding and decoding cache records.
//
// Codec 定义编码和解码缓存记录的接口。
type Codec interface {
	// Marshal encodes a value into bytes.
	// Marshal 将值编码为字节。
	Marshal(value interface{}) ([]byte, error)

	// Unmarshal decodes bytes into the value pointed to by value.
	// Unmarshal 将字节解码到value指向的值中。
	Unmarshal(data []byte, value interface{}) error

	// Name returns the codec name used in configuration.
	// Name 返回配置中使用的编解码器名称。
	Name() string
}

// JSONCodec encodes records as JSON, the format the storefront keeps in session storage.
//
// JSONCodec 将记录编码为JSON，这是店面在会话存储中保存的格式。
type JSONCodec struct {
	Pretty bool
}

// Marshal encodes value as JSON.
func (c *JSONCodec) Marshal(value interface{}) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.Pretty {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shoperrors.ErrSerializationFailed, err)
	}
	return data, nil
}

// Unmarshal decodes JSON into value.
func (c *JSONCodec) Unmarshal(data []byte, value interface{}) error {
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("%w: %v", shoperrors.ErrDeserializationFailed, err)
	}
	return nil
}

// Name returns "json".
func (c *JSONCodec) Name() string {
	return "json"
}

// NewJSONCodec creates a JSON codec.
func NewJSONCodec(pretty bool) *JSONCodec {
	return &JSONCodec{Pretty: pretty}
}

// GobCodec encodes records with encoding/gob.
// It is more compact than JSON but does not distinguish a nil slice from an empty one,
// so it must not be used for search state.
//
// GobCodec 使用encoding/gob编码记录。
// 它比JSON更紧凑，但无法区分nil切片和空切片，因此不能用于搜索状态。
type GobCodec struct{}

// Marshal encodes value with gob.
func (c *GobCodec) Marshal(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("%w: %v", shoperrors.ErrSerializationFailed, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes gob data into value.
func (c *GobCodec) Unmarshal(data []byte, value interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(value); err != nil {
		return fmt.Errorf("%w: %v", shoperrors.ErrDeserializationFailed, err)
	}
	return nil
}

// Name returns "gob".
func (c *GobCodec) Name() string {
	return "gob"
}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// DefaultCodec returns the JSON codec.
//
// DefaultCodec 返回JSON编解码器。
func DefaultCodec() Codec {
	return NewJSONCodec(false)
}

// GetCodec returns a codec by name.
//
// GetCodec 按名称返回编解码器。
//
// Parameters:
//   - name: "json" or "gob"
//
// Returns:
//   - Codec: The codec
//   - error: An error if the name is unknown
func GetCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return NewJSONCodec(false), nil
	case "gob":
		return NewGobCodec(), nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
