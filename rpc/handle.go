package rpc

// Kind tags the wire-level category of a remote object.
type Kind string

const (
	// KindRealm marks a handle referencing a remote engine instance.
	KindRealm Kind = "realm"
	// KindObject marks a handle referencing a single remote record.
	KindObject Kind = "object"
	// KindList marks a handle referencing a remote list property.
	KindList Kind = "list"
	// KindResults marks a handle referencing a remote query result set.
	KindResults Kind = "results"
)

// Handle references a remote object without transferring its contents. It is
// also the wire encoding for such references: any argument or result shaped
// like {"$kind", "id", "realmId"} is a handle, everything else is a value.
//
// A handle is only meaningful within the realm that produced it; handles must
// never be mixed across realm ids.
type Handle struct {
	Kind    Kind   `json:"$kind"`
	ID      string `json:"id"`
	RealmID string `json:"realmId"`
}

// RemoteHandle implements Referencer.
func (h Handle) RemoteHandle() Handle {
	return h
}

// Valid reports whether the handle references an actual remote object.
func (h Handle) Valid() bool {
	return h.Kind != "" && h.ID != ""
}

// Referencer is implemented by local wrapper objects that stand in for a
// remote object. When such a value is passed as an RPC argument it is encoded
// as a wire reference rather than serialized by value.
type Referencer interface {
	RemoteHandle() Handle
}
