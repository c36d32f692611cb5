package codec

import (
	"testing"

	shoperrors "github.com/yourusername/shopsync/pkg/errors"
)

type record struct {
	Data      []string `json:"data"`
	Timestamp int64    `json:"timestamp"`
}

// TestCodecs verifies that each codec decodes what it encodes and reports
// malformed input as a deserialization error.
//
// TestCodecs 验证每个编解码器都能解码自己编码的内容，并将格式错误的输入报告为反序列化错误。
func TestCodecs(t *testing.T) {
	for _, name := range []string{"json", "gob"} {
		t.Run(name, func(t *testing.T) {
			c, err := GetCodec(name)
			if err != nil {
				t.Fatalf("GetCodec(%q) failed: %v", name, err)
			}
			if c.Name() != name {
				t.Errorf("Expected codec name %q, got %q", name, c.Name())
			}

			data, err := c.Marshal(record{Data: []string{"a", "b"}, Timestamp: 42})
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var out record
			if err := c.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if out.Timestamp != 42 || len(out.Data) != 2 || out.Data[1] != "b" {
				t.Errorf("Unexpected decoded record %+v", out)
			}

			err = c.Unmarshal([]byte("{not valid"), &out)
			if !shoperrors.IsSerializationError(err) {
				t.Errorf("Expected a deserialization error, got %v", err)
			}
		})
	}
}

func TestGetCodecUnknown(t *testing.T) {
	if _, err := GetCodec("xml"); err == nil {
		t.Error("Expected an error for an unknown codec")
	}
	c, err := GetCodec("")
	if err != nil || c.Name() != "json" {
		t.Errorf("Expected empty name to select json, got %v, %v", c, err)
	}
}
