package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type EncoderDecoder[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

type JsonEncDec[T any] struct {
	strict bool
}

var _ EncoderDecoder[any] = new(JsonEncDec[any])

func NewJsonEncoderDecoder[T any]() *JsonEncDec[T] {
	return &JsonEncDec[T]{}
}

// NewStrictJsonEncoderDecoder rejects payloads carrying fields T does not
// declare.
func NewStrictJsonEncoderDecoder[T any]() *JsonEncDec[T] {
	return &JsonEncDec[T]{strict: true}
}

// NewEncoderDecoder resolves a configured codec name.
func NewEncoderDecoder[T any](name string) (EncoderDecoder[T], error) {
	switch name {
	case "", "JSON":
		return NewJsonEncoderDecoder[T](), nil
	case "STRICT_JSON":
		return NewStrictJsonEncoderDecoder[T](), nil
	}
	return nil, fmt.Errorf("unsupported encoder decoder %q", name)
}

func (encdec *JsonEncDec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (encdec *JsonEncDec[T]) Decode(data []byte) (*T, error) {
	var res T
	dec := json.NewDecoder(bytes.NewReader(data))
	if encdec.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}
