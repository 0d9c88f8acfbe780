package adapter

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON defines an interface for JSON operations to enable mocking
//
//go:generate mockgen -source=json.go -destination=../mocks/json.go -package=mocks -mock_names=JSON=MockJSON
type JSON interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// RealJSON implements JSON with json-iterator in standard-library compatible mode,
// so custom MarshalJSON/UnmarshalJSON methods and struct tags behave as with encoding/json
type RealJSON struct {
	api jsoniter.API
}

// NewJSON creates a new real JSON implementation
func NewJSON() JSON {
	return &RealJSON{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (j *RealJSON) Marshal(v interface{}) ([]byte, error) {
	return j.api.Marshal(v)
}

func (j *RealJSON) Unmarshal(data []byte, v interface{}) error {
	return j.api.Unmarshal(data, v)
}
