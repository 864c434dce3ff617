// Package rpc implements the session-oriented RPC channel used to drive a
// remote database engine from a local process.
//
// The local process holds no data. Every operation is forwarded as a
// JSON-RPC 2.0 call over HTTP to a debug server hosting the engine; values
// returned by the remote side that are not primitives come back as opaque
// handles and are reconstructed into rich wrappers through a type converter
// registry populated at startup.
package rpc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	json2 "github.com/gorilla/rpc/v2/json2"
	"github.com/rs/zerolog"
)

// rpcPath is the single JSON-RPC endpoint exposed by a debug server.
const rpcPath = "/rpc"

// Channel owns one session against one remote debug endpoint and exposes the
// primitive verbs of the protocol. All realms created in a process share one
// channel; calls issued through it are executed by the remote engine in
// issuance order.
type Channel struct {
	endpoint   *url.URL
	httpClient *http.Client
	registry   *Registry
	logger     zerolog.Logger

	// clientID correlates every request from this debugger process on the
	// server side.
	clientID string

	sessionID string
	token     string

	mu        sync.Mutex
	observers map[string][]func()
}

// ChannelOption represents a functional option for configuring the Channel
type ChannelOption func(*Channel)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ChannelOption {
	return func(c *Channel) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for protocol-level diagnostics. The
// default is a no-op logger so the library is silent unless asked.
func WithLogger(logger zerolog.Logger) ChannelOption {
	return func(c *Channel) {
		c.logger = logger
	}
}

// NewChannel creates a channel against one debug endpoint. The endpoint is a
// host:port pair; the RPC path is fixed by the protocol. The registry must
// already be populated with a converter per known object kind.
func NewChannel(endpoint string, registry *Registry, options ...ChannelOption) (*Channel, error) {
	if registry == nil {
		return nil, NewUsageError("a channel requires a type converter registry")
	}
	u, err := url.Parse("http://" + endpoint + rpcPath)
	if err != nil {
		return nil, NewUsageError("invalid debug endpoint %q: %v", endpoint, err)
	}

	channel := &Channel{
		endpoint:   u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		registry:   registry,
		logger:     zerolog.Nop(),
		clientID:   uuid.NewString(),
		observers:  make(map[string][]func()),
	}

	for _, option := range options {
		option(channel)
	}

	return channel, nil
}

// Endpoint returns the host:port this channel talks to.
func (c *Channel) Endpoint() string {
	return c.endpoint.Host
}

// SessionID returns the session identifier assigned by the remote side, or
// the empty string before CreateSession has succeeded.
func (c *Channel) SessionID() string {
	return c.sessionID
}

// SetToken installs a session token attached as a bearer credential to every
// subsequent request. Servers that do not require authentication ignore it.
func (c *Channel) SetToken(token string) {
	c.token = token
}

// Token returns the currently installed session token, if any.
func (c *Channel) Token() string {
	return c.token
}

type sessionCreateResult struct {
	SessionID string `json:"sessionId"`
}

// CreateSession asks the remote side to open a session and stores the
// assigned identifier on the channel. Transport failures propagate so the
// bootstrap can move on to the next candidate host.
func (c *Channel) CreateSession(ctx context.Context) (string, error) {
	var result sessionCreateResult
	if err := c.call(ctx, "Session.Create", struct{}{}, &result); err != nil {
		return "", err
	}
	c.sessionID = result.SessionID
	c.logger.Debug().
		Str("endpoint", c.endpoint.Host).
		Str("session_id", c.sessionID).
		Msg("session established")
	return c.sessionID, nil
}

type loginParams struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type loginResult struct {
	Token string `json:"token"`
}

// Login authenticates against a debug server that requires credentials and
// returns the issued session token. The token is not installed implicitly;
// callers decide whether to keep it via SetToken.
func (c *Channel) Login(ctx context.Context, username, password string) (string, error) {
	var result loginResult
	params := loginParams{SessionID: c.sessionID, Username: username, Password: password}
	if err := c.call(ctx, "Session.Login", params, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// ClearTestState tells the remote side to discard every engine instance it
// is hosting. Used only for test isolation.
func (c *Channel) ClearTestState(ctx context.Context) error {
	params := sessionParams{SessionID: c.sessionID}
	return c.call(ctx, "Session.ClearTestState", params, &struct{}{})
}

type sessionParams struct {
	SessionID string `json:"sessionId"`
}

type realmCreateParams struct {
	SessionID string      `json:"sessionId"`
	Config    interface{} `json:"config"`
}

type realmCreateResult struct {
	RealmID string `json:"realmId"`
}

// CreateRealm asks the remote engine to open a realm with the given
// configuration and returns its remote identifier. The configuration is a
// plain JSON-serializable value; it never contains remote object handles.
func (c *Channel) CreateRealm(ctx context.Context, config interface{}) (string, error) {
	var result realmCreateResult
	params := realmCreateParams{SessionID: c.sessionID, Config: config}
	if err := c.call(ctx, "Realm.Create", params, &result); err != nil {
		return "", err
	}
	return result.RealmID, nil
}

type callParams struct {
	SessionID string        `json:"sessionId"`
	RealmID   string        `json:"realmId"`
	Target    interface{}   `json:"target"`
	Method    string        `json:"method"`
	Args      []interface{} `json:"args"`
}

type callResult struct {
	Result interface{} `json:"result"`
}

// Call forwards one method invocation to the remote engine. The target is
// either a remote object handle (for instance methods) or a type identifier
// string; arguments are serialized with handles re-encoded as wire
// references. The decoded result has any returned handles reconstructed into
// wrappers through the registry.
func (c *Channel) Call(ctx context.Context, realmID string, target interface{}, method string, args []interface{}) (interface{}, error) {
	encodedTarget, err := encodeValue(target)
	if err != nil {
		return nil, err
	}
	encodedArgs, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	params := callParams{
		SessionID: c.sessionID,
		RealmID:   realmID,
		Target:    encodedTarget,
		Method:    method,
		Args:      encodedArgs,
	}
	var result callResult
	if err := c.call(ctx, "Realm.Call", params, &result); err != nil {
		return nil, err
	}
	return c.decodeValue(result.Result)
}

type txParams struct {
	SessionID string `json:"sessionId"`
	RealmID   string `json:"realmId"`
}

// BeginTransaction opens a transaction on the given realm. Transactions are
// realm-scoped; a realm may have at most one outstanding transaction, and
// the remote side rejects a nested begin.
func (c *Channel) BeginTransaction(ctx context.Context, realmID string) error {
	return c.call(ctx, "Realm.BeginTransaction", txParams{SessionID: c.sessionID, RealmID: realmID}, &struct{}{})
}

// CommitTransaction commits the outstanding transaction on the given realm.
// Calling it without a preceding begin is a protocol violation surfaced by
// the remote side.
func (c *Channel) CommitTransaction(ctx context.Context, realmID string) error {
	return c.call(ctx, "Realm.CommitTransaction", txParams{SessionID: c.sessionID, RealmID: realmID}, &struct{}{})
}

// CancelTransaction rolls back the outstanding transaction on the given
// realm.
func (c *Channel) CancelTransaction(ctx context.Context, realmID string) error {
	return c.call(ctx, "Realm.CancelTransaction", txParams{SessionID: c.sessionID, RealmID: realmID}, &struct{}{})
}

type schemaVersionParams struct {
	SessionID     string `json:"sessionId"`
	Path          string `json:"path"`
	EncryptionKey []byte `json:"encryptionKey,omitempty"`
}

type schemaVersionResult struct {
	Version uint64 `json:"version"`
}

// SchemaVersion queries the schema version of the realm file at the given
// path without opening a realm.
func (c *Channel) SchemaVersion(ctx context.Context, path string, encryptionKey []byte) (uint64, error) {
	params := schemaVersionParams{SessionID: c.sessionID, Path: path, EncryptionKey: encryptionKey}
	var result schemaVersionResult
	if err := c.call(ctx, "Realm.SchemaVersion", params, &result); err != nil {
		return 0, err
	}
	return result.Version, nil
}

// OnMutation registers an observer invoked whenever remote state owned by
// the given realm id may have changed: after every successful mutating call
// and on both transaction outcomes. Wrapper collections use this to discard
// cached state.
func (c *Channel) OnMutation(realmID string, observer func()) {
	if observer == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[realmID] = append(c.observers[realmID], observer)
}

// NotifyMutation synchronously invokes every mutation observer registered
// for the realm id.
func (c *Channel) NotifyMutation(realmID string) {
	c.mu.Lock()
	observers := make([]func(), len(c.observers[realmID]))
	copy(observers, c.observers[realmID])
	c.mu.Unlock()

	for _, observer := range observers {
		observer()
	}
}

// call performs one JSON-RPC round trip. The call blocks until a response or
// failure has been obtained; no retry, batching, or reordering happens here.
func (c *Channel) call(ctx context.Context, method string, params, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return NewUsageError("failed to encode %s request: %v", method, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return NewTransportError("failed to create request", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Client-Id", c.clientID)
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Trace().Str("method", method).Msg("rpc call")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return NewTransportError("request to debug server failed", err)
	}
	defer func() {
		// Drain before closing so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewTransportError("debug server returned status "+resp.Status, nil)
	}

	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		if rpcErr, ok := err.(*json2.Error); ok {
			// A failure reported by the remote engine; the message
			// propagates unchanged.
			return NewRPCError(rpcErr.Message, nil)
		}
		return NewTransportError("failed to decode debug server response", err)
	}
	return nil
}
