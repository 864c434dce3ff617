package realm

import (
	"context"
	"fmt"
	"sync"

	"github.com/remoterealm/remoterealm/rpc"
)

// Collection is the behavior shared by List and Results: a sized,
// remotely-backed container addressable as a remote object.
type Collection interface {
	rpc.Referencer
	Length(ctx context.Context) (int, error)
}

var (
	_ Collection = (*List)(nil)
	_ Collection = (*Results)(nil)
)

// collection is the shared base of every remote-object wrapper: a remote
// handle plus a dispatcher bound to the owning realm.
type collection struct {
	handle     rpc.Handle
	dispatcher *rpc.Dispatcher
}

// RemoteHandle implements rpc.Referencer.
func (c *collection) RemoteHandle() rpc.Handle {
	return c.handle
}

func (c *collection) invoke(ctx context.Context, table rpc.MethodTable, name string, args ...interface{}) (interface{}, error) {
	desc, ok := table.Lookup(name)
	if !ok {
		return nil, rpc.NewUsageError("%s has no method %q", c.handle.Kind, name)
	}
	return c.dispatcher.Invoke(ctx, c.handle, desc, args...)
}

func (c *collection) invokeInt(ctx context.Context, table rpc.MethodTable, name string, args ...interface{}) (int, error) {
	result, err := c.invoke(ctx, table, name, args...)
	if err != nil {
		return 0, err
	}
	n, ok := result.(float64)
	if !ok {
		return 0, rpc.NewRPCError(fmt.Sprintf("remote %s returned %T instead of a number", name, result), nil)
	}
	return int(n), nil
}

var objectMethodTable = rpc.NewMethodTable(
	rpc.MethodDesc{Name: "getProperty"},
	rpc.MethodDesc{Name: "setProperty", Mutating: true},
	rpc.MethodDesc{Name: "objectType"},
)

// Object wraps a single remote record.
type Object struct {
	collection
}

// Get reads one property of the record.
func (o *Object) Get(ctx context.Context, name string) (interface{}, error) {
	return o.invoke(ctx, objectMethodTable, "getProperty", name)
}

// Set writes one property of the record.
func (o *Object) Set(ctx context.Context, name string, value interface{}) error {
	_, err := o.invoke(ctx, objectMethodTable, "setProperty", name, value)
	return err
}

// Type returns the record's type name.
func (o *Object) Type(ctx context.Context) (string, error) {
	result, err := o.invoke(ctx, objectMethodTable, "objectType")
	if err != nil {
		return "", err
	}
	name, ok := result.(string)
	if !ok {
		return "", rpc.NewRPCError(fmt.Sprintf("remote objectType returned %T instead of a string", result), nil)
	}
	return name, nil
}

var listMethodTable = rpc.NewMethodTable(
	rpc.MethodDesc{Name: "length"},
	rpc.MethodDesc{Name: "push", Mutating: true},
	rpc.MethodDesc{Name: "pop", Mutating: true},
	rpc.MethodDesc{Name: "shift", Mutating: true},
	rpc.MethodDesc{Name: "unshift", Mutating: true},
)

// List wraps a remote list property.
type List struct {
	collection
}

// Length returns the number of elements in the list.
func (l *List) Length(ctx context.Context) (int, error) {
	return l.invokeInt(ctx, listMethodTable, "length")
}

// Push appends values to the end of the list.
func (l *List) Push(ctx context.Context, values ...interface{}) error {
	_, err := l.invoke(ctx, listMethodTable, "push", values...)
	return err
}

// Pop removes and returns the last element.
func (l *List) Pop(ctx context.Context) (interface{}, error) {
	return l.invoke(ctx, listMethodTable, "pop")
}

// Shift removes and returns the first element.
func (l *List) Shift(ctx context.Context) (interface{}, error) {
	return l.invoke(ctx, listMethodTable, "shift")
}

// Unshift prepends values to the front of the list.
func (l *List) Unshift(ctx context.Context, values ...interface{}) error {
	_, err := l.invoke(ctx, listMethodTable, "unshift", values...)
	return err
}

var resultsMethodTable = rpc.NewMethodTable(
	rpc.MethodDesc{Name: "length"},
	rpc.MethodDesc{Name: "filtered"},
	rpc.MethodDesc{Name: "sorted"},
)

// Results wraps a remote query result set. The length is cached locally and
// discarded whenever a mutation notification arrives for the owning realm,
// since any mutating call may have changed what the query matches.
type Results struct {
	collection

	mu           sync.Mutex
	cachedLength int
	lengthValid  bool
}

// Length returns the number of records in the result set.
func (r *Results) Length(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.lengthValid {
		length := r.cachedLength
		r.mu.Unlock()
		return length, nil
	}
	r.mu.Unlock()

	length, err := r.invokeInt(ctx, resultsMethodTable, "length")
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.cachedLength = length
	r.lengthValid = true
	r.mu.Unlock()
	return length, nil
}

// invalidate discards cached state after a mutation in the owning realm.
func (r *Results) invalidate() {
	r.mu.Lock()
	r.lengthValid = false
	r.mu.Unlock()
}

// Filtered returns a new result set narrowed by the given query.
func (r *Results) Filtered(ctx context.Context, query string, args ...interface{}) (*Results, error) {
	callArgs := append([]interface{}{query}, args...)
	result, err := r.invoke(ctx, resultsMethodTable, "filtered", callArgs...)
	if err != nil {
		return nil, err
	}
	filtered, ok := result.(*Results)
	if !ok {
		return nil, rpc.NewRPCError(fmt.Sprintf("remote filtered returned %T instead of a result set", result), nil)
	}
	return filtered, nil
}

// Sorted returns a new result set ordered by the given property.
func (r *Results) Sorted(ctx context.Context, property string, reverse bool) (*Results, error) {
	result, err := r.invoke(ctx, resultsMethodTable, "sorted", property, reverse)
	if err != nil {
		return nil, err
	}
	sorted, ok := result.(*Results)
	if !ok {
		return nil, rpc.NewRPCError(fmt.Sprintf("remote sorted returned %T instead of a result set", result), nil)
	}
	return sorted, nil
}
