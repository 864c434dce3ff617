// Package rpctest provides an in-process fake debug server for exercising
// the RPC channel, the engine facade, and the connection bootstrap without a
// real remote engine.
//
// The fake server implements the wire protocol verbs (session creation,
// login, realm creation, method dispatch, transactions) with just enough
// state to validate protocol sequencing: it tracks per-realm transaction
// state and rejects nested begins the way the real engine does, records
// every dispatched call, and counts invocations per verb.
package rpctest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Call records one Realm.Call dispatched to the fake server.
type Call struct {
	SessionID string
	RealmID   string
	Target    interface{}
	Method    string
	Args      []interface{}
}

// CallHandler produces the result for a dispatched call. Returning an error
// makes the server report it as a remote execution failure.
type CallHandler func(call Call) (interface{}, error)

// Server is a fake debug server backed by httptest.
type Server struct {
	HTTP *httptest.Server

	// FailSessionCreate makes Session.Create fail at the transport level,
	// simulating an unreachable or broken debug host.
	FailSessionCreate bool

	// RequireAuth rejects every verb except session creation and login
	// unless the request carries AuthToken as a bearer credential.
	RequireAuth bool
	AuthToken   string
	Username    string
	Password    string

	// Version is returned by Realm.SchemaVersion.
	Version uint64

	mu         sync.Mutex
	handler    CallHandler
	sessions   map[string]bool
	inTx       map[string]bool
	realms     map[string]json.RawMessage
	realmOrder []string
	calls      []Call
	counts     map[string]int
}

// NewServer starts a fake debug server.
func NewServer() *Server {
	s := &Server{
		sessions: make(map[string]bool),
		inTx:     make(map[string]bool),
		realms:   make(map[string]json.RawMessage),
		counts:   make(map[string]int),
	}
	s.HTTP = httptest.NewServer(http.HandlerFunc(s.serveRPC))
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.HTTP.Close()
}

// Host returns the host:port the server listens on, suitable for a channel
// endpoint or a bootstrap host entry.
func (s *Server) Host() string {
	return strings.TrimPrefix(s.HTTP.URL, "http://")
}

// OnCall installs the handler producing results for dispatched calls.
func (s *Server) OnCall(handler CallHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Calls returns every Realm.Call recorded so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// Count returns how many times the given verb was invoked.
func (s *Server) Count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[method]
}

// RealmCount returns the number of realms currently hosted.
func (s *Server) RealmCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.realms)
}

// LastRealmConfig returns the configuration of the most recently created
// realm, or nil if none was created.
func (s *Server) LastRealmConfig() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.realmOrder) == 0 {
		return nil
	}
	return s.realms[s.realmOrder[len(s.realmOrder)-1]]
}

// clientRequest mirrors the JSON-RPC 2.0 request shape produced by the
// gorilla json2 client codec: params carries the call's parameter object
// directly.
type clientRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     uint64          `json:"id"`
}

type serverResponse struct {
	Version string      `json:"jsonrpc"`
	Result  interface{} `json:"result"`
	Error   *wireError  `json:"error,omitempty"`
	ID      uint64      `json:"id"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callParams struct {
	SessionID string        `json:"sessionId"`
	RealmID   string        `json:"realmId"`
	Target    interface{}   `json:"target"`
	Method    string        `json:"method"`
	Args      []interface{} `json:"args"`
}

type realmCreateParams struct {
	SessionID string          `json:"sessionId"`
	Config    json.RawMessage `json:"config"`
}

type txParams struct {
	RealmID string `json:"realmId"`
}

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.counts[req.Method]++
	failSession := s.FailSessionCreate
	s.mu.Unlock()

	if req.Method == "Session.Create" && failSession {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.RequireAuth && req.Method != "Session.Create" && req.Method != "Session.Login" {
		if r.Header.Get("Authorization") != "Bearer "+s.AuthToken {
			writeError(w, req.ID, "unauthorized")
			return
		}
	}

	result, errMsg := s.dispatch(req.Method, req.Params)
	if errMsg != "" {
		writeError(w, req.ID, errMsg)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(method string, params json.RawMessage) (interface{}, string) {
	switch method {
	case "Session.Create":
		sid := uuid.NewString()
		s.mu.Lock()
		s.sessions[sid] = true
		s.mu.Unlock()
		return map[string]interface{}{"sessionId": sid}, ""

	case "Session.Login":
		var p loginParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, "malformed login parameters"
		}
		if p.Username != s.Username || p.Password != s.Password {
			return nil, "invalid credentials"
		}
		return map[string]interface{}{"token": s.AuthToken}, ""

	case "Session.ClearTestState":
		s.mu.Lock()
		s.realms = make(map[string]json.RawMessage)
		s.realmOrder = nil
		s.inTx = make(map[string]bool)
		s.mu.Unlock()
		return map[string]interface{}{}, ""

	case "Realm.Create":
		var p realmCreateParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, "malformed realm configuration"
		}
		rid := uuid.NewString()
		s.mu.Lock()
		s.realms[rid] = p.Config
		s.realmOrder = append(s.realmOrder, rid)
		s.mu.Unlock()
		return map[string]interface{}{"realmId": rid}, ""

	case "Realm.SchemaVersion":
		return map[string]interface{}{"version": s.Version}, ""

	case "Realm.BeginTransaction":
		var p txParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, "malformed transaction parameters"
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.inTx[p.RealmID] {
			return nil, "The Realm is already in a write transaction"
		}
		s.inTx[p.RealmID] = true
		return map[string]interface{}{}, ""

	case "Realm.CommitTransaction", "Realm.CancelTransaction":
		var p txParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, "malformed transaction parameters"
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.inTx[p.RealmID] {
			return nil, "Can't perform transactions on a Realm that is not in a write transaction"
		}
		s.inTx[p.RealmID] = false
		return map[string]interface{}{}, ""

	case "Realm.Call":
		var p callParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, "malformed call parameters"
		}
		call := Call{
			SessionID: p.SessionID,
			RealmID:   p.RealmID,
			Target:    p.Target,
			Method:    p.Method,
			Args:      p.Args,
		}
		s.mu.Lock()
		s.calls = append(s.calls, call)
		handler := s.handler
		s.mu.Unlock()

		if handler == nil {
			return map[string]interface{}{"result": nil}, ""
		}
		result, err := handler(call)
		if err != nil {
			return nil, err.Error()
		}
		return map[string]interface{}{"result": result}, ""

	default:
		return nil, fmt.Sprintf("unknown method %q", method)
	}
}

func writeResult(w http.ResponseWriter, id uint64, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(serverResponse{
		Version: "2.0",
		Result:  result,
		ID:      id,
	})
}

func writeError(w http.ResponseWriter, id uint64, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(serverResponse{
		Version: "2.0",
		Error:   &wireError{Code: -32000, Message: message},
		ID:      id,
	})
}
