// Package erptest provides an in-memory ERP for tests: a Caller fake and an
// httptest JSON-RPC server backed by the same handlers.
package erptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"babettepos/internal/erp"
)

// Handler answers one model method. args and kwargs have been through a JSON
// round trip, so numbers are float64 and lists are []any.
type Handler func(args []any, kwargs map[string]any) (any, error)

// Call is a recorded invocation.
type Call struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
	UID    int
}

type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call

	// Users maps login to {uid, password} for common.authenticate.
	Users map[string]User
	// AuthErr, when set, is returned by common.authenticate for every login.
	AuthErr error
}

type User struct {
	UID      int
	Password string
}

func NewFake() *Fake {
	return &Fake{handlers: make(map[string]Handler), Users: make(map[string]User)}
}

// On registers h for model.method, replacing any previous handler.
func (f *Fake) On(model, method string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[model+"."+method] = h
	return f
}

// Returns registers a handler that always answers v.
func (f *Fake) Returns(model, method string, v any) *Fake {
	return f.On(model, method, func([]any, map[string]any) (any, error) { return v, nil })
}

// Fails registers a handler that answers with an ERP error.
func (f *Fake) Fails(model, method, message string) *Fake {
	return f.On(model, method, func([]any, map[string]any) (any, error) {
		return nil, &erp.RPCError{Code: 200, Message: message}
	})
}

func (f *Fake) Execute(ctx context.Context, cred erp.Credentials, model, method string, args []any, kwargs map[string]any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nArgs, nKwargs, err := normalize(args, kwargs)
	if err != nil {
		return err
	}
	v, err := f.dispatch(cred.UID, model, method, nArgs, nKwargs)
	if err != nil {
		return err
	}
	if v == nil {
		return erp.ErrEmptyResult
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &erp.ShapeError{Model: model, Method: method, Err: err}
	}
	return nil
}

func (f *Fake) dispatch(uid int, model, method string, args []any, kwargs map[string]any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Model: model, Method: method, Args: args, Kwargs: kwargs, UID: uid})
	h, ok := f.handlers[model+"."+method]
	f.mu.Unlock()
	if !ok {
		return nil, &erp.RPCError{Code: 200, Message: fmt.Sprintf("The method '%s' does not exist on the model '%s'", method, model)}
	}
	return h(args, kwargs)
}

// Calls returns the recorded calls to model.method, or all calls when both are empty.
func (f *Fake) Calls(model, method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if (model == "" && method == "") || (c.Model == model && c.Method == method) {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *Fake) authenticate(login, password string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AuthErr != nil {
		return nil, f.AuthErr
	}
	u, ok := f.Users[login]
	if !ok || u.Password != password {
		return false, nil
	}
	return u.UID, nil
}

func normalize(args []any, kwargs map[string]any) ([]any, map[string]any, error) {
	raw, err := json.Marshal(struct {
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	}{args, kwargs})
	if err != nil {
		return nil, nil, err
	}
	var out struct {
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, err
	}
	if out.Kwargs == nil {
		out.Kwargs = map[string]any{}
	}
	return out.Args, out.Kwargs, nil
}

// Domain returns the first positional argument of a search-style call.
func Domain(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	d, _ := args[0].([]any)
	return d
}

// Cond finds the first [field, op, value] leaf on field in a domain.
func Cond(domain []any, field string) (op string, value any, ok bool) {
	for _, leaf := range domain {
		l, isList := leaf.([]any)
		if !isList || len(l) != 3 {
			continue
		}
		if name, _ := l[0].(string); name == field {
			op, _ = l[1].(string)
			return op, l[2], true
		}
	}
	return "", nil, false
}

// IntValue reads a domain value as int.
func IntValue(v any) int {
	f, _ := v.(float64)
	return int(f)
}

// IDs reads a list argument of ids.
func IDs(v any) []int {
	list, _ := v.([]any)
	out := make([]int, 0, len(list))
	for _, x := range list {
		out = append(out, IntValue(x))
	}
	return out
}
