package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWrapper struct {
	handle Handle
}

func (w *fakeWrapper) RemoteHandle() Handle {
	return w.handle
}

func TestEncodeValue(t *testing.T) {
	handle := Handle{Kind: KindObject, ID: "obj-1", RealmID: "realm-1"}

	tests := []struct {
		name     string
		value    interface{}
		expected interface{}
	}{
		{name: "nil passes through", value: nil, expected: nil},
		{name: "bool passes through", value: true, expected: true},
		{name: "int passes through", value: 42, expected: 42},
		{name: "float passes through", value: 1.5, expected: 1.5},
		{name: "string passes through", value: "name", expected: "name"},
		{name: "handle encodes as itself", value: handle, expected: handle},
		{name: "wrapper encodes as its handle", value: &fakeWrapper{handle: handle}, expected: handle},
		{
			name:     "slice encodes recursively",
			value:    []interface{}{"a", handle},
			expected: []interface{}{"a", handle},
		},
		{
			name:     "map encodes recursively",
			value:    map[string]interface{}{"owner": &fakeWrapper{handle: handle}},
			expected: map[string]interface{}{"owner": handle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := encodeValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, encoded)
		})
	}
}

func TestEncodeValueRejectsUnknownShapes(t *testing.T) {
	type opaque struct{ X int }

	_, err := encodeValue(opaque{X: 1})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))

	_, err = encodeValue(map[int]interface{}{1: "x"})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestDecodeValueReconstructsHandles(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(KindObject, func(ch *Channel, h Handle) (interface{}, error) {
		return &fakeWrapper{handle: h}, nil
	}))

	channel, err := NewChannel("localhost:8082", registry)
	require.NoError(t, err)

	wire := map[string]interface{}{
		"$kind":   "object",
		"id":      "obj-1",
		"realmId": "realm-1",
	}
	decoded, err := channel.decodeValue(wire)
	require.NoError(t, err)

	wrapper, ok := decoded.(*fakeWrapper)
	require.True(t, ok)
	assert.Equal(t, Handle{Kind: KindObject, ID: "obj-1", RealmID: "realm-1"}, wrapper.handle)
}

func TestDecodeValueUnknownKind(t *testing.T) {
	channel, err := NewChannel("localhost:8082", NewRegistry())
	require.NoError(t, err)

	_, err = channel.decodeValue(map[string]interface{}{
		"$kind": "mystery",
		"id":    "x",
	})
	require.Error(t, err)
	assert.True(t, IsRPCError(err))
}

func TestDecodeValueWalksComposites(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(KindList, func(ch *Channel, h Handle) (interface{}, error) {
		return &fakeWrapper{handle: h}, nil
	}))
	channel, err := NewChannel("localhost:8082", registry)
	require.NoError(t, err)

	decoded, err := channel.decodeValue([]interface{}{
		"plain",
		map[string]interface{}{"$kind": "list", "id": "l1", "realmId": "r1"},
		map[string]interface{}{"count": float64(3)},
	})
	require.NoError(t, err)

	items, ok := decoded.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, "plain", items[0])
	assert.IsType(t, &fakeWrapper{}, items[1])
	assert.Equal(t, map[string]interface{}{"count": float64(3)}, items[2])
}

func TestHandleFromWireRequiresKindAndID(t *testing.T) {
	_, ok := handleFromWire(map[string]interface{}{"id": "x"})
	assert.False(t, ok)

	_, ok = handleFromWire(map[string]interface{}{"$kind": "object"})
	assert.False(t, ok)

	h, ok := handleFromWire(map[string]interface{}{"$kind": "object", "id": "x"})
	assert.True(t, ok)
	assert.Equal(t, Handle{Kind: KindObject, ID: "x"}, h)
}
