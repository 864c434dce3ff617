// Package realm implements the user-facing proxy for a remote database
// engine. A Realm mirrors the engine's API (create, query, transact, delete,
// listen for changes) but executes every operation by dispatching it over a
// session-oriented RPC channel to the engine instance living in the debugged
// process. The local side holds only opaque remote-object handles; lists,
// result sets, and records are reconstructed lazily from RPC responses.
package realm

import (
	"context"
	"fmt"

	"github.com/remoterealm/remoterealm/rpc"
)

// Config configures the remote realm opened by New. Schema entries may be
// ObjectSchema values or RecordType implementations; every RecordType is
// replaced by its extracted descriptor before the configuration is forwarded
// to the remote engine, and its constructor is retained for reconstruction.
type Config struct {
	Path          string
	SchemaVersion uint64
	EncryptionKey []byte
	Schema        []interface{}
}

// defaultChannel is the session shared by every realm in the process. It is
// installed once, during startup, after the connection bootstrap succeeds.
var defaultChannel *rpc.Channel

// defaultPath is the realm file path used when a Config carries none.
var defaultPath = "default.realm"

// Init installs the process-wide channel used by New and the static queries.
// It is called once, after bootstrap.Establish has produced a session.
func Init(channel *rpc.Channel) {
	defaultChannel = channel
}

// DefaultPath returns the realm file path used when a Config carries none.
func DefaultPath() string {
	return defaultPath
}

// SetDefaultPath overrides the default realm file path.
func SetDefaultPath(path string) {
	defaultPath = path
}

// realmMethodTable lists every proxied realm method and whether it mutates
// remote state. Mutating methods fire the mutation observers of the realm
// after a successful call.
var realmMethodTable = rpc.NewMethodTable(
	rpc.MethodDesc{Name: "create", Mutating: true},
	rpc.MethodDesc{Name: "objects"},
	rpc.MethodDesc{Name: "delete", Mutating: true},
	rpc.MethodDesc{Name: "deleteAll", Mutating: true},
	rpc.MethodDesc{Name: "close"},
	rpc.MethodDesc{Name: "path"},
	rpc.MethodDesc{Name: "schemaVersion"},
)

// Realm is the engine handle: the local proxy for one remote engine
// instance. It carries the realm id assigned by the remote "create realm"
// call, the constructor registry extracted from the schema, and the
// process-local change-listener set. Change listeners are never sent over
// the wire.
type Realm struct {
	handle       rpc.Handle
	channel      *rpc.Channel
	dispatcher   *rpc.Dispatcher
	constructors map[string]RecordType
	listeners    *listenerSet
}

// Option represents a functional option for opening a realm
type Option func(*openOptions)

type openOptions struct {
	channel *rpc.Channel
}

// WithChannel opens the realm over a specific channel instead of the
// process-wide one installed by Init.
func WithChannel(channel *rpc.Channel) Option {
	return func(o *openOptions) {
		o.channel = channel
	}
}

// New opens a realm on the remote engine and returns its local handle.
func New(ctx context.Context, config Config, options ...Option) (*Realm, error) {
	opts := &openOptions{channel: defaultChannel}
	for _, option := range options {
		option(opts)
	}
	if opts.channel == nil {
		return nil, rpc.NewUsageError("no debug session established; run the connection bootstrap before opening a realm")
	}
	channel := opts.channel

	schemas, constructors, err := normalizeSchema(config.Schema)
	if err != nil {
		return nil, err
	}

	path := config.Path
	if path == "" {
		path = defaultPath
	}

	realmID, err := channel.CreateRealm(ctx, wireConfig(path, config, schemas))
	if err != nil {
		return nil, err
	}

	return &Realm{
		handle:       rpc.Handle{Kind: rpc.KindRealm, ID: realmID, RealmID: realmID},
		channel:      channel,
		dispatcher:   rpc.NewDispatcher(channel, realmID),
		constructors: constructors,
		listeners:    newListenerSet(),
	}, nil
}

// wireConfig builds the JSON configuration forwarded to the remote
// "create realm" verb.
func wireConfig(path string, config Config, schemas []ObjectSchema) map[string]interface{} {
	wire := map[string]interface{}{
		"path": path,
	}
	if len(schemas) > 0 {
		wire["schema"] = schemas
	}
	if config.SchemaVersion != 0 {
		wire["schemaVersion"] = config.SchemaVersion
	}
	if len(config.EncryptionKey) > 0 {
		wire["encryptionKey"] = config.EncryptionKey
	}
	return wire
}

// RemoteHandle implements rpc.Referencer, letting a realm be passed as an
// RPC argument as a wire reference.
func (r *Realm) RemoteHandle() rpc.Handle {
	return r.handle
}

// ID returns the remote identifier of the engine instance.
func (r *Realm) ID() string {
	return r.handle.ID
}

// ConstructorFor returns the RecordType registered for the given type name
// at construction, or nil if records of that type have no constructor.
func (r *Realm) ConstructorFor(name string) RecordType {
	return r.constructors[name]
}

// invoke dispatches one proxied realm method.
func (r *Realm) invoke(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	desc, ok := realmMethodTable.Lookup(name)
	if !ok {
		return nil, rpc.NewUsageError("realm has no method %q", name)
	}
	return r.dispatcher.Invoke(ctx, r.handle, desc, args...)
}

// resolveType translates a type argument to the remote type identifier. A
// string passes through unchanged; a RecordType must carry a well-formed
// schema and must have been registered in this realm's schema.
func (r *Realm) resolveType(typ interface{}) (string, error) {
	switch t := typ.(type) {
	case string:
		if t == "" {
			return "", rpc.NewUsageError("object type name must not be empty")
		}
		return t, nil
	case RecordType:
		schema := t.Schema()
		if err := validateSchema(schema); err != nil {
			return "", err
		}
		if _, ok := r.constructors[schema.Name]; !ok {
			return "", rpc.NewUsageError("constructor for type %q was not registered in the schema for this realm", schema.Name)
		}
		return schema.Name, nil
	default:
		return "", rpc.NewUsageError("object type must be a string or a RecordType, got %T", typ)
	}
}

// Create inserts a record of the given type and returns its wrapper.
func (r *Realm) Create(ctx context.Context, typ interface{}, properties map[string]interface{}) (*Object, error) {
	typeID, err := r.resolveType(typ)
	if err != nil {
		return nil, err
	}
	result, err := r.invoke(ctx, "create", typeID, properties)
	if err != nil {
		return nil, err
	}
	obj, ok := result.(*Object)
	if !ok {
		return nil, rpc.NewRPCError(fmt.Sprintf("remote create returned %T instead of an object", result), nil)
	}
	return obj, nil
}

// Objects queries all records of the given type and returns the result set.
// Additional arguments are forwarded to the remote query verb unchanged.
func (r *Realm) Objects(ctx context.Context, typ interface{}, args ...interface{}) (*Results, error) {
	typeID, err := r.resolveType(typ)
	if err != nil {
		return nil, err
	}
	callArgs := append([]interface{}{typeID}, args...)
	result, err := r.invoke(ctx, "objects", callArgs...)
	if err != nil {
		return nil, err
	}
	results, ok := result.(*Results)
	if !ok {
		return nil, rpc.NewRPCError(fmt.Sprintf("remote objects returned %T instead of a result set", result), nil)
	}
	return results, nil
}

// Delete removes the given record, list, or result set contents.
func (r *Realm) Delete(ctx context.Context, target interface{}) error {
	if _, ok := target.(rpc.Referencer); !ok {
		return rpc.NewUsageError("delete requires a remote object, got %T", target)
	}
	_, err := r.invoke(ctx, "delete", target)
	return err
}

// DeleteAll removes every record in the realm.
func (r *Realm) DeleteAll(ctx context.Context) error {
	_, err := r.invoke(ctx, "deleteAll")
	return err
}

// Close closes the remote engine instance. The session channel stays open;
// it is shared by every realm in the process.
func (r *Realm) Close(ctx context.Context) error {
	_, err := r.invoke(ctx, "close")
	return err
}

// Path returns the remote-side file path of the realm.
func (r *Realm) Path(ctx context.Context) (string, error) {
	result, err := r.invoke(ctx, "path")
	if err != nil {
		return "", err
	}
	path, ok := result.(string)
	if !ok {
		return "", rpc.NewRPCError(fmt.Sprintf("remote path returned %T instead of a string", result), nil)
	}
	return path, nil
}

// SchemaVersion returns the schema version of the open realm.
func (r *Realm) SchemaVersion(ctx context.Context) (uint64, error) {
	result, err := r.invoke(ctx, "schemaVersion")
	if err != nil {
		return 0, err
	}
	version, ok := result.(float64)
	if !ok {
		return 0, rpc.NewRPCError(fmt.Sprintf("remote schemaVersion returned %T instead of a number", result), nil)
	}
	return uint64(version), nil
}

// SchemaVersionAt queries the schema version of the realm file at the given
// path through the process-wide session, without opening a realm.
func SchemaVersionAt(ctx context.Context, path string, encryptionKey []byte) (uint64, error) {
	if defaultChannel == nil {
		return 0, rpc.NewUsageError("no debug session established; run the connection bootstrap first")
	}
	return defaultChannel.SchemaVersion(ctx, path, encryptionKey)
}

// ClearTestState tells the remote side to discard every engine instance.
// Used only for test isolation.
func ClearTestState(ctx context.Context) error {
	if defaultChannel == nil {
		return rpc.NewUsageError("no debug session established; run the connection bootstrap first")
	}
	return defaultChannel.ClearTestState(ctx)
}
