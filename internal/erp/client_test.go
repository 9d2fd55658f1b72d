package erp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babettepos/internal/apperr"
)

type captured struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Service string `json:"service"`
		Method  string `json:"method"`
		Args    []any  `json:"args"`
	} `json:"params"`
	ID int64 `json:"id"`
}

func newServer(t *testing.T, status int, body string, seen *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecute_BuildsEnvelope(t *testing.T) {
	var seen captured
	srv := newServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":[{"id":4,"name":"WH/OUT/0004","state":"assigned"}]}`, &seen)
	c := NewClient(srv.URL, "shopdb", time.Second, nil)
	fixed := time.UnixMilli(1_700_000_000_123)
	c.now = func() time.Time { return fixed }

	var rows []struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		State string `json:"state"`
	}
	err := NewEnv(c, Credentials{UID: 9, Password: "pw"}).SearchRead(context.Background(), "stock.picking",
		[]any{[]any{"sale_id", "=", 12}}, Query{Fields: []string{"id", "name", "state"}}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "WH/OUT/0004", rows[0].Name)

	assert.Equal(t, "2.0", seen.JSONRPC)
	assert.Equal(t, "call", seen.Method)
	assert.Equal(t, "object", seen.Params.Service)
	assert.Equal(t, "execute_kw", seen.Params.Method)
	assert.Equal(t, fixed.UnixMilli(), seen.ID)
	require.Len(t, seen.Params.Args, 7)
	assert.Equal(t, "shopdb", seen.Params.Args[0])
	assert.Equal(t, float64(9), seen.Params.Args[1])
	assert.Equal(t, "pw", seen.Params.Args[2])
	assert.Equal(t, "stock.picking", seen.Params.Args[3])
	assert.Equal(t, "search_read", seen.Params.Args[4])
	assert.Equal(t, map[string]any{"fields": []any{"id", "name", "state"}}, seen.Params.Args[6])
}

func TestExecute_AlwaysSendsKwargs(t *testing.T) {
	var seen captured
	srv := newServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":true}`, &seen)
	c := NewClient(srv.URL, "shopdb", time.Second, nil)

	err := c.Execute(context.Background(), Credentials{UID: 1, Password: "x"}, "sale.order", "action_confirm", []any{[]int{5}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, seen.Params.Args, 7)
	assert.Equal(t, map[string]any{}, seen.Params.Args[6])
}

func TestExecute_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "data message wins",
			body: `{"jsonrpc":"2.0","id":1,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.UserError","message":"Picking is locked"}}}`,
			want: "Picking is locked",
		},
		{
			name: "top level message",
			body: `{"jsonrpc":"2.0","id":1,"error":{"code":100,"message":"Session expired"}}`,
			want: "Session expired",
		},
		{
			name: "no message at all",
			body: `{"jsonrpc":"2.0","id":1,"error":{"code":1}}`,
			want: "Unknown ERP error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, tt.body, nil)
			c := NewClient(srv.URL, "db", time.Second, nil)

			err := c.Execute(context.Background(), Credentials{UID: 1}, "stock.picking", "button_validate", nil, nil, nil)
			require.Error(t, err)

			var rpcErr *RPCError
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, tt.want, rpcErr.Message)
			assert.Equal(t, tt.want, Message(err))
			assert.ErrorIs(t, err, apperr.ErrUpstream)
		})
	}
}

func TestExecute_MissingResult(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1}`, nil)
	c := NewClient(srv.URL, "db", time.Second, nil)

	err := c.Execute(context.Background(), Credentials{UID: 1}, "sale.order", "read", nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Equal(t, "No result returned from ERP", Message(err))
}

func TestExecute_NullResultIsAnAnswer(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":null}`, nil)
	c := NewClient(srv.URL, "db", time.Second, nil)

	var raw json.RawMessage
	err := c.Execute(context.Background(), Credentials{UID: 1}, "stock.picking", "action_send_to_shipper", []any{[]int{3}}, nil, &raw)
	require.NoError(t, err)
	assert.False(t, Truthy(raw))
}

func TestExecute_HTTPStatus(t *testing.T) {
	srv := newServer(t, http.StatusBadGateway, `upstream down`, nil)
	c := NewClient(srv.URL, "db", time.Second, nil)

	err := c.Execute(context.Background(), Credentials{UID: 1}, "sale.order", "read", nil, nil, nil)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Equal(t, "HTTP error! status: 502", Message(err))
}

func TestExecute_ShapeMismatch(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"unexpected":"object"}}`, nil)
	c := NewClient(srv.URL, "db", time.Second, nil)

	var rows []map[string]any
	err := c.Execute(context.Background(), Credentials{UID: 1}, "sale.order", "search_read", nil, nil, &rows)
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "sale.order", shapeErr.Model)
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestExecute_OneRequestNoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "db", time.Second, nil)

	err := c.Execute(context.Background(), Credentials{UID: 1}, "sale.order", "read", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantUID int
		wantErr error
	}{
		{name: "uid", body: `{"jsonrpc":"2.0","id":1,"result":42}`, wantUID: 42},
		{name: "false", body: `{"jsonrpc":"2.0","id":1,"result":false}`, wantErr: ErrInvalidCredentials},
		{name: "rpc error", body: `{"jsonrpc":"2.0","id":1,"error":{"code":1,"message":"database does not exist"}}`, wantErr: apperr.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen captured
			srv := newServer(t, http.StatusOK, tt.body, &seen)
			c := NewClient(srv.URL, "shopdb", time.Second, nil)

			uid, err := c.Authenticate(context.Background(), "kassa", "secret")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUID, uid)
			assert.Equal(t, "common", seen.Params.Service)
			assert.Equal(t, "authenticate", seen.Params.Method)
			assert.Equal(t, []any{"shopdb", "kassa", "secret", map[string]any{}}, seen.Params.Args)
		})
	}
}
