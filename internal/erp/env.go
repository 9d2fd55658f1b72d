package erp

import (
	"context"
	"encoding/json"
)

// Query holds the keyword arguments shared by search-style methods.
type Query struct {
	Fields  []string
	Limit   int
	Order   string
	Context map[string]any
}

func (q Query) kwargs() map[string]any {
	kw := map[string]any{}
	if len(q.Fields) > 0 {
		kw["fields"] = q.Fields
	}
	if q.Limit > 0 {
		kw["limit"] = q.Limit
	}
	if q.Order != "" {
		kw["order"] = q.Order
	}
	if len(q.Context) > 0 {
		kw["context"] = q.Context
	}
	return kw
}

// Env binds a Caller to one user's credentials.
type Env struct {
	caller Caller
	cred   Credentials
}

func NewEnv(caller Caller, cred Credentials) *Env {
	return &Env{caller: caller, cred: cred}
}

func (e *Env) Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	return e.caller.Execute(ctx, e.cred, model, method, args, kwargs, out)
}

// SearchRead decodes matching records into out, which must be a pointer to a slice.
func (e *Env) SearchRead(ctx context.Context, model string, domain []any, q Query, out any) error {
	if domain == nil {
		domain = []any{}
	}
	return e.Execute(ctx, model, "search_read", []any{domain}, q.kwargs(), out)
}

func (e *Env) Search(ctx context.Context, model string, domain []any, limit int) ([]int, error) {
	if domain == nil {
		domain = []any{}
	}
	var ids []int
	err := e.Execute(ctx, model, "search", []any{domain}, Query{Limit: limit}.kwargs(), &ids)
	return ids, err
}

func (e *Env) Read(ctx context.Context, model string, ids []int, fields []string, out any) error {
	return e.Execute(ctx, model, "read", []any{ids, fields}, nil, out)
}

func (e *Env) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	var id int
	err := e.Execute(ctx, model, "create", []any{values}, nil, &id)
	return id, err
}

func (e *Env) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	var raw json.RawMessage
	return e.Execute(ctx, model, "write", []any{ids, values}, nil, &raw)
}

// Action calls a button/action method on ids and returns the raw result.
func (e *Env) Action(ctx context.Context, model, method string, ids []int, kwargs map[string]any) (json.RawMessage, error) {
	var raw json.RawMessage
	err := e.Execute(ctx, model, method, []any{ids}, kwargs, &raw)
	return raw, err
}
