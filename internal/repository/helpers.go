package repository

import (
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// toVector converts a descriptor to a pgvector value. Empty descriptors map to NULL.
func toVector(descriptor []float64) *pgvector.Vector {
	if len(descriptor) == 0 {
		return nil
	}
	floats := make([]float32, len(descriptor))
	for i, v := range descriptor {
		floats[i] = float32(v)
	}
	vec := pgvector.NewVector(floats)
	return &vec
}

func fromVector(vec *pgvector.Vector) []float64 {
	if vec == nil || vec.Slice() == nil {
		return nil
	}
	out := make([]float64, len(vec.Slice()))
	for i, v := range vec.Slice() {
		out[i] = float64(v)
	}
	return out
}

// marshalJSON encodes a JSONB column value. Nil slices are stored as empty arrays.
func marshalJSON[T any](column string, v []T) ([]byte, error) {
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", column, err)
	}
	return data, nil
}

// marshalNullable encodes a nullable JSONB column. A nil pointer is NULL.
func marshalNullable[T any](column string, v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", column, err)
	}
	return data, nil
}

func unmarshalJSON(column string, data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", column, err)
	}
	return nil
}
