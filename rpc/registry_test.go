package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterValidation(t *testing.T) {
	registry := NewRegistry()
	factory := func(ch *Channel, h Handle) (interface{}, error) { return h, nil }

	assert.True(t, IsUsageError(registry.Register("", factory)))
	assert.True(t, IsUsageError(registry.Register(KindList, nil)))

	require.NoError(t, registry.Register(KindList, factory))
	assert.True(t, registry.Known(KindList))

	// A second registration for the same kind is rejected.
	err := registry.Register(KindList, factory)
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
}

func TestRegistryReconstructUnknownKind(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Reconstruct(nil, Handle{Kind: "mystery", ID: "x"})
	require.Error(t, err)
	assert.True(t, IsRPCError(err))
}
