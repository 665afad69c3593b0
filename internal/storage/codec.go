package storage

import (
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// VectorCodec converts vectors to and from a backend column representation
type VectorCodec interface {
	// ColumnType is the SQL type of the embedding column
	ColumnType() string
	Encode(vec []float32) (any, error)
	Decode(src any) ([]float32, error)
}

// jsonCodec stores vectors as a JSON array of numbers in a TEXT column
type jsonCodec struct{}

func (jsonCodec) ColumnType() string { return "TEXT" }

func (jsonCodec) Encode(vec []float32) (any, error) {
	if vec == nil {
		vec = []float32{}
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil, fmt.Errorf("encode vector: %w", err)
	}
	return string(data), nil
}

func (jsonCodec) Decode(src any) ([]float32, error) {
	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("decode vector: unsupported type %T", src)
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return vec, nil
}

// pgvectorCodec stores vectors in a native pgvector column
type pgvectorCodec struct{}

func (pgvectorCodec) ColumnType() string { return "vector" }

func (pgvectorCodec) Encode(vec []float32) (any, error) {
	return pgvector.NewVector(vec), nil
}

func (pgvectorCodec) Decode(src any) ([]float32, error) {
	var v pgvector.Vector
	if err := v.Scan(src); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return v.Slice(), nil
}
