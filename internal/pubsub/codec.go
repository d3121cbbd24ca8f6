package pubsub

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/hamba/avro/v2"
)

// ParseSchema parses an Avro schema JSON document into a fresh cache, so two topics whose
// schemas share a full name never see each other's definition.
func ParseSchema(schemaJSON string) (avro.Schema, error) {
	return avro.ParseWithCache(schemaJSON, "", &avro.SchemaCache{})
}

// Encode serializes fields as Avro binary against schema. Encoding is deterministic: the same
// schema and fields always yield the same bytes. Field values are coerced to the record's
// primitive types first (json.Number and numeric strings to int/long/float/double, "true"/"false"
// to boolean, json.Number to string). Values outside an int or float range are rejected.
func Encode(schema avro.Schema, fields map[string]any) ([]byte, error) {
	rec, ok := schema.(*avro.RecordSchema)
	if !ok {
		return nil, fmt.Errorf("pubsub: schema %s is not a record", schema.Type())
	}
	value := make(map[string]any, len(fields))
	for k, v := range fields {
		value[k] = v
	}
	for _, f := range rec.Fields() {
		v, present := value[f.Name()]
		if !present {
			continue
		}
		coerced, err := coerce(f.Type(), v)
		if err != nil {
			return nil, fmt.Errorf("pubsub: field %s: %w", f.Name(), err)
		}
		value[f.Name()] = coerced
	}
	return avro.Marshal(schema, value)
}

// Decode is the inverse of Encode, used to echo published payloads.
func Decode(schema avro.Schema, payload []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := avro.Unmarshal(schema, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func coerce(s avro.Schema, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if u, ok := s.(*avro.UnionSchema); ok {
		return coerceUnion(u, v)
	}
	switch s.Type() {
	case avro.Long:
		return toInt64(v)
	case avro.Int:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%d overflows int", n)
		}
		return int32(n), nil
	case avro.Double:
		return toFloat64(v)
	case avro.Float:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		if math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%v overflows float", f)
		}
		return float32(f), nil
	case avro.Boolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
		return nil, fmt.Errorf("cannot use %T as boolean", v)
	case avro.String:
		switch str := v.(type) {
		case string:
			return str, nil
		case json.Number:
			return str.String(), nil
		}
		return nil, fmt.Errorf("cannot use %T as string", v)
	}
	return v, nil
}

// coerceUnion tries each non-null branch in declaration order and keeps the first that accepts v.
func coerceUnion(u *avro.UnionSchema, v any) (any, error) {
	var firstErr error
	for _, branch := range u.Types() {
		if branch.Type() == avro.Null {
			continue
		}
		c, err := coerce(branch, v)
		if err == nil {
			return c, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return v, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("cannot use %T as integer", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("cannot use %T as number", v)
}
