package rpc

import (
	"reflect"
	"time"
)

// encodeValue converts a local value into its wire form. Primitives pass
// through unchanged; anything standing in for a remote object (a Handle or a
// Referencer wrapper) is replaced by its wire reference; composite values are
// walked recursively. Values that are neither is a usage error, raised before
// any request is sent.
func encodeValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case Handle:
		return val, nil
	case Referencer:
		return val.RemoteHandle(), nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val, nil
	case time.Time:
		return val, nil
	case []byte:
		return val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		encoded := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := encodeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			encoded[i] = item
		}
		return encoded, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, NewUsageError("cannot serialize map with non-string keys (%s)", rv.Type())
		}
		encoded := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item, err := encodeValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			encoded[iter.Key().String()] = item
		}
		return encoded, nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeValue(rv.Elem().Interface())
	}

	return nil, NewUsageError("cannot serialize value of type %T for a remote call", v)
}

// encodeArgs applies encodeValue to every argument of a call.
func encodeArgs(args []interface{}) ([]interface{}, error) {
	encoded := make([]interface{}, len(args))
	for i, arg := range args {
		v, err := encodeValue(arg)
		if err != nil {
			return nil, err
		}
		encoded[i] = v
	}
	return encoded, nil
}

// decodeValue converts a wire value, as produced by the JSON decoder, into
// its local form. A JSON object carrying a known "$kind" tag is reconstructed
// into a rich wrapper through the registry; other composites are walked
// recursively.
func (c *Channel) decodeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		if h, ok := handleFromWire(val); ok {
			return c.registry.Reconstruct(c, h)
		}
		decoded := make(map[string]interface{}, len(val))
		for key, item := range val {
			inner, err := c.decodeValue(item)
			if err != nil {
				return nil, err
			}
			decoded[key] = inner
		}
		return decoded, nil
	case []interface{}:
		decoded := make([]interface{}, len(val))
		for i, item := range val {
			inner, err := c.decodeValue(item)
			if err != nil {
				return nil, err
			}
			decoded[i] = inner
		}
		return decoded, nil
	default:
		return v, nil
	}
}

// handleFromWire recognizes the {"$kind", "id", "realmId"} reference shape.
func handleFromWire(obj map[string]interface{}) (Handle, bool) {
	kind, ok := obj["$kind"].(string)
	if !ok || kind == "" {
		return Handle{}, false
	}
	id, ok := obj["id"].(string)
	if !ok {
		return Handle{}, false
	}
	realmID, _ := obj["realmId"].(string)
	return Handle{Kind: Kind(kind), ID: id, RealmID: realmID}, true
}
