package rpc

import "context"

// MethodDesc describes one proxied method of a remote object kind. Mutating
// methods may change remote state, so a successful invocation additionally
// fires the mutation observers of the owning realm.
type MethodDesc struct {
	Name     string
	Mutating bool
}

// MethodTable is the explicit set of methods proxied for one object kind,
// consumed by the generic dispatch routine.
type MethodTable map[string]MethodDesc

// NewMethodTable builds a table from a list of descriptors.
func NewMethodTable(descs ...MethodDesc) MethodTable {
	table := make(MethodTable, len(descs))
	for _, desc := range descs {
		table[desc.Name] = desc
	}
	return table
}

// Lookup resolves a method name against the table.
func (t MethodTable) Lookup(name string) (MethodDesc, bool) {
	desc, ok := t[name]
	return desc, ok
}

// Dispatcher turns local method calls into RPC calls for one realm. It is
// bound to the realm id owning the receiver so mutation notifications reach
// the right observers.
type Dispatcher struct {
	channel *Channel
	realmID string
}

// NewDispatcher creates a dispatcher bound to the given realm id.
func NewDispatcher(channel *Channel, realmID string) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		realmID: realmID,
	}
}

// RealmID returns the realm id this dispatcher is bound to.
func (d *Dispatcher) RealmID() string {
	return d.realmID
}

// Channel returns the underlying RPC channel.
func (d *Dispatcher) Channel() *Channel {
	return d.channel
}

// Invoke marshals the receiver and arguments into an RPC call and returns
// the unmarshaled result. RPC failures propagate unchanged; there is no
// retry. After a successful mutating call the mutation observers for the
// owning realm are notified so dependent collections know their cached state
// may be stale. That notification is independent of, and earlier than, any
// change-listener firing at transaction commit.
func (d *Dispatcher) Invoke(ctx context.Context, target interface{}, desc MethodDesc, args ...interface{}) (interface{}, error) {
	result, err := d.channel.Call(ctx, d.realmID, target, desc.Name, args)
	if err != nil {
		return nil, err
	}
	if desc.Mutating {
		d.channel.NotifyMutation(d.realmID)
	}
	return result, nil
}
