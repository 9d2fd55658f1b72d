package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"babettepos/internal/metrics"
)

//go:generate mockgen -source=client.go -destination=mocks/caller_mock.go -package=mocks

// Caller executes a model method on behalf of a user. Decoding of the result
// into out is part of the contract: a result that does not fit out is an
// error. A nil out discards the result but still requires one to be present.
type Caller interface {
	Execute(ctx context.Context, cred Credentials, model, method string, args []any, kwargs map[string]any, out any) error
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  params `json:"params"`
	ID      int64  `json:"id"`
}

type params struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// Client talks JSON-RPC 2.0 to a single ERP database. Every Execute is one
// outbound POST: no retry, no caching, no batching.
type Client struct {
	http *resty.Client
	url  string
	db   string
	log  *zap.Logger
	now  func() time.Time
}

func NewClient(url, db string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{
		http: httpClient,
		url:  url,
		db:   db,
		log:  log.Named("erp"),
		now:  time.Now,
	}
}

// Authenticate resolves a login to a uid via common.authenticate.
func (c *Client) Authenticate(ctx context.Context, username, password string) (int, error) {
	var raw json.RawMessage
	err := c.call(ctx, "common", "authenticate", []any{c.db, username, password, map[string]any{}}, "res.users", "authenticate", &raw)
	if err != nil {
		if errors.Is(err, ErrEmptyResult) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}
	if !Truthy(raw) {
		return 0, ErrInvalidCredentials
	}
	var uid int
	if err := json.Unmarshal(raw, &uid); err != nil {
		return 0, &ShapeError{Model: "res.users", Method: "authenticate", Err: err}
	}
	if uid <= 0 {
		return 0, ErrInvalidCredentials
	}
	return uid, nil
}

func (c *Client) Execute(ctx context.Context, cred Credentials, model, method string, args []any, kwargs map[string]any, out any) error {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	rpcArgs := []any{c.db, cred.UID, cred.Password, model, method, args, kwargs}
	return c.call(ctx, "object", "execute_kw", rpcArgs, model, method, out)
}

func (c *Client) call(ctx context.Context, service, method string, args []any, model, action string, out any) error {
	started := c.now()
	err := c.do(ctx, service, method, args, model, action, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.log.Debug("erp call failed",
			zap.String("model", model),
			zap.String("method", action),
			zap.Error(err),
		)
	}
	metrics.ObserveERPCall(model, action, outcome, c.now().Sub(started))
	return err
}

func (c *Client) do(ctx context.Context, service, method string, args []any, model, action string, out any) error {
	payload := request{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params{Service: service, Method: method, Args: args},
		ID:      c.now().UnixMilli(),
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("erp %s.%s: %w", model, action, err)}
	}
	if status := resp.StatusCode(); status < 200 || status > 299 {
		return &HTTPError{Status: status}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return &ShapeError{Model: model, Method: action, Err: err}
	}
	if raw, ok := envelope["error"]; ok && !isFalsy(raw) {
		var body rpcErrorBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return &ShapeError{Model: model, Method: action, Err: err}
		}
		return rpcErrorFrom(&body)
	}
	// A null result is a real answer (methods returning None); only a
	// missing one is an error.
	result, ok := envelope["result"]
	if !ok {
		return ErrEmptyResult
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return &ShapeError{Model: model, Method: action, Err: err}
	}
	return nil
}
