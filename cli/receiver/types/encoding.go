package types

import (
	"fmt"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"gopkg.in/vmihailenco/msgpack.v2"
)

const (
	EncodingJSON     = "json"
	EncodingMsgpack  = "msgpack"
	EncodingProtobuf = "protobuf"
)

// Encode сериализует запись в один из поддерживаемых форматов. Пустой формат означает JSON.
func Encode(r *Record, format string) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("некорректная ссылка на запись")
	}

	switch format {
	case "", EncodingJSON:
		return r.ToBytes()
	case EncodingMsgpack:
		return msgpack.Marshal(r.fields())
	case EncodingProtobuf:
		return proto.Marshal(toStruct(r.fields()))
	default:
		return nil, fmt.Errorf("неизвестный формат сериализации: %s", format)
	}
}

func toStruct(fields map[string]interface{}) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			s.Fields[k] = &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: val}}
		case float64:
			s.Fields[k] = &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: val}}
		case int:
			s.Fields[k] = &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: float64(val)}}
		case int64:
			s.Fields[k] = &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: float64(val)}}
		}
	}
	return s
}
