package realm

import "github.com/remoterealm/remoterealm/rpc"

// RegisterConverters populates the type converter registry with the
// reconstruction functions for every object kind this package can wrap. It
// is called once during startup, before the first session is created.
func RegisterConverters(registry *rpc.Registry) error {
	if err := registry.Register(rpc.KindObject, func(ch *rpc.Channel, h rpc.Handle) (interface{}, error) {
		return &Object{collection: newCollection(ch, h)}, nil
	}); err != nil {
		return err
	}

	if err := registry.Register(rpc.KindList, func(ch *rpc.Channel, h rpc.Handle) (interface{}, error) {
		return &List{collection: newCollection(ch, h)}, nil
	}); err != nil {
		return err
	}

	return registry.Register(rpc.KindResults, func(ch *rpc.Channel, h rpc.Handle) (interface{}, error) {
		results := &Results{collection: newCollection(ch, h)}
		// Any mutation in the owning realm may change what the query
		// matches.
		ch.OnMutation(h.RealmID, results.invalidate)
		return results, nil
	})
}

func newCollection(ch *rpc.Channel, h rpc.Handle) collection {
	return collection{
		handle:     h,
		dispatcher: rpc.NewDispatcher(ch, h.RealmID),
	}
}
