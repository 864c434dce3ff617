package realm

import (
	"context"

	"github.com/remoterealm/remoterealm/rpc"
)

// Write runs the callback inside a remote write transaction.
//
// The transaction moves Idle -> InTransaction via beginTransaction, then
// either InTransaction -> Committed (callback returned nil) or
// InTransaction -> Cancelled (callback returned an error or panicked).
//
// On commit, the mutation observers of the realm are refreshed and every
// registered change listener is invoked exactly once with (realm, "change").
// On cancel, only the mutation observers are refreshed, so dependent
// collections fall back to the pre-transaction state; change listeners are
// not invoked, and the callback's error (or panic) reaches the caller
// unchanged.
//
// Calling Write from inside an active Write callback is a protocol
// violation: the remote engine rejects the nested beginTransaction and the
// rejection propagates as the returned error.
func (r *Realm) Write(ctx context.Context, fn func() error) error {
	if !r.handle.Valid() {
		return rpc.NewUsageError("write requires an open realm")
	}
	if fn == nil {
		return rpc.NewUsageError("write requires a callback")
	}

	if err := r.channel.BeginTransaction(ctx, r.handle.RealmID); err != nil {
		return err
	}

	if err := r.runInTransaction(ctx, fn); err != nil {
		// A cancel failure cannot mask the callback's own error.
		_ = r.channel.CancelTransaction(ctx, r.handle.RealmID)
		r.channel.NotifyMutation(r.handle.RealmID)
		return err
	}

	if err := r.channel.CommitTransaction(ctx, r.handle.RealmID); err != nil {
		return err
	}
	r.channel.NotifyMutation(r.handle.RealmID)

	for _, cb := range r.listeners.snapshot() {
		cb(r, ChangeEvent)
	}
	return nil
}

// runInTransaction executes the callback, converting a panic into a cancel
// before letting it continue unwinding.
func (r *Realm) runInTransaction(ctx context.Context, fn func() error) error {
	defer func() {
		if rec := recover(); rec != nil {
			_ = r.channel.CancelTransaction(ctx, r.handle.RealmID)
			r.channel.NotifyMutation(r.handle.RealmID)
			panic(rec)
		}
	}()
	return fn()
}
