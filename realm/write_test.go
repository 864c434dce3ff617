package realm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remoterealm/remoterealm/realm"
	"github.com/remoterealm/remoterealm/rpc"
	"github.com/remoterealm/remoterealm/rpc/rpctest"
)

func TestWriteCommitInvokesListenersOnce(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	type invocation struct {
		realm *realm.Realm
		event string
	}
	var invocations []invocation
	require.NoError(t, r.AddListener("change", func(r *realm.Realm, event string) {
		invocations = append(invocations, invocation{realm: r, event: event})
	}))

	var ran bool
	require.NoError(t, r.Write(ctx, func() error {
		ran = true
		return nil
	}))

	assert.True(t, ran)
	assert.Equal(t, 1, server.Count("Realm.BeginTransaction"))
	assert.Equal(t, 1, server.Count("Realm.CommitTransaction"))
	assert.Equal(t, 0, server.Count("Realm.CancelTransaction"))

	require.Len(t, invocations, 1)
	assert.Same(t, r, invocations[0].realm)
	assert.Equal(t, "change", invocations[0].event)
}

func TestWriteCallbackErrorCancels(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var listenerCalls int
	require.NoError(t, r.AddListener("change", func(*realm.Realm, string) {
		listenerCalls++
	}))

	boom := errors.New("constraint violated")
	err := r.Write(ctx, func() error {
		return boom
	})

	// The caller sees exactly the callback's error, not a wrapped one.
	assert.Same(t, boom, err)
	assert.Equal(t, 1, server.Count("Realm.BeginTransaction"))
	assert.Equal(t, 1, server.Count("Realm.CancelTransaction"))
	assert.Equal(t, 0, server.Count("Realm.CommitTransaction"))
	assert.Equal(t, 0, listenerCalls, "change listeners must not fire on cancel")
}

func TestWriteCallbackPanicCancels(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var listenerCalls int
	require.NoError(t, r.AddListener("change", func(*realm.Realm, string) {
		listenerCalls++
	}))

	assert.PanicsWithValue(t, "boom", func() {
		_ = r.Write(ctx, func() error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, server.Count("Realm.CancelTransaction"))
	assert.Equal(t, 0, server.Count("Realm.CommitTransaction"))
	assert.Equal(t, 0, listenerCalls)
}

func TestWriteUsageErrors(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)

	err := r.Write(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, rpc.IsUsageError(err))
	assert.Equal(t, 0, server.Count("Realm.BeginTransaction"))
}

func TestNestedWriteIsRejected(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var nestedErr error
	err := r.Write(ctx, func() error {
		nestedErr = r.Write(ctx, func() error { return nil })
		return nestedErr
	})

	require.Error(t, nestedErr)
	assert.True(t, rpc.IsRPCError(nestedErr), "remote rejects the nested begin")
	assert.Same(t, nestedErr, err)

	// The outer transaction was cancelled exactly once.
	assert.Equal(t, 1, server.Count("Realm.CancelTransaction"))
	assert.Equal(t, 0, server.Count("Realm.CommitTransaction"))
}

func TestWriteFiresMutationObserversOnBothOutcomes(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, channel := openTestRealm(t, server)
	ctx := context.Background()

	var refreshes int
	channel.OnMutation(r.ID(), func() { refreshes++ })

	require.NoError(t, r.Write(ctx, func() error { return nil }))
	assert.Equal(t, 1, refreshes, "commit refreshes dependent collections")

	_ = r.Write(ctx, func() error { return errors.New("abort") })
	assert.Equal(t, 2, refreshes, "cancel refreshes dependent collections too")
}

func TestAddListenerRejectsUnknownEvent(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var calls int
	err := r.AddListener("delete", func(*realm.Realm, string) { calls++ })
	require.Error(t, err)
	assert.True(t, rpc.IsUsageError(err))

	// The listener set was not mutated: a commit fires nothing.
	require.NoError(t, r.Write(ctx, func() error { return nil }))
	assert.Equal(t, 0, calls)
}

func TestRemoveListenerPreventsInvocation(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var calls int
	cb := func(*realm.Realm, string) { calls++ }

	require.NoError(t, r.AddListener("change", cb))
	require.NoError(t, r.RemoveListener("change", cb))

	require.NoError(t, r.Write(ctx, func() error { return nil }))
	assert.Equal(t, 0, calls)
}

func TestRemoveAllListeners(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var calls int
	require.NoError(t, r.AddListener("change", func(*realm.Realm, string) { calls++ }))
	require.NoError(t, r.AddListener("change", func(*realm.Realm, string) { calls++ }))

	require.NoError(t, r.RemoveAllListeners())
	require.NoError(t, r.Write(ctx, func() error { return nil }))
	assert.Equal(t, 0, calls)

	err := r.RemoveAllListeners("delete")
	require.Error(t, err)
	assert.True(t, rpc.IsUsageError(err))
}

func TestAddListenerIsIdempotentPerCallback(t *testing.T) {
	server := rpctest.NewServer()
	defer server.Close()

	r, _ := openTestRealm(t, server)
	ctx := context.Background()

	var calls int
	cb := func(*realm.Realm, string) { calls++ }

	require.NoError(t, r.AddListener("change", cb))
	require.NoError(t, r.AddListener("change", cb))

	require.NoError(t, r.Write(ctx, func() error { return nil }))
	assert.Equal(t, 1, calls, "a callback is invoked at most once per commit")
}
