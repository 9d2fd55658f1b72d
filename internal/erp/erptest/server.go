package erptest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"babettepos/internal/erp"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Service string `json:"service"`
		Method  string `json:"method"`
		Args    []any  `json:"args"`
	} `json:"params"`
	ID any `json:"id"`
}

// NewServer serves the fake over JSON-RPC the way the ERP does: errors are
// returned with HTTP 200 inside the envelope.
func NewServer(f *Fake) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		args := req.Params.Args
		switch {
		case req.Params.Service == "common" && req.Params.Method == "authenticate" && len(args) >= 3:
			login, _ := args[1].(string)
			password, _ := args[2].(string)
			uid, err := f.authenticate(login, password)
			if err != nil {
				writeError(w, req.ID, err)
				return
			}
			writeResult(w, req.ID, uid)
		case req.Params.Service == "object" && req.Params.Method == "execute_kw" && len(args) >= 6:
			uid := IntValue(args[1])
			model, _ := args[3].(string)
			method, _ := args[4].(string)
			positional, _ := args[5].([]any)
			kwargs := map[string]any{}
			if len(args) > 6 {
				if kw, ok := args[6].(map[string]any); ok {
					kwargs = kw
				}
			}
			v, err := f.dispatch(uid, model, method, positional, kwargs)
			if err != nil {
				writeError(w, req.ID, err)
				return
			}
			writeResult(w, req.ID, v)
		default:
			writeError(w, req.ID, &erp.RPCError{Code: 404, Message: "unknown service"})
		}
	}))
}

// A nil result is written without a result key.
func writeResult(w http.ResponseWriter, id, result any) {
	body := map[string]any{"jsonrpc": "2.0", "id": id}
	if result != nil {
		body["result"] = result
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, id any, err error) {
	body := map[string]any{"code": 200, "message": "Odoo Server Error"}
	var rpcErr *erp.RPCError
	if errors.As(err, &rpcErr) {
		body["data"] = map[string]any{"name": "odoo.exceptions.UserError", "message": rpcErr.Message}
	} else {
		body["data"] = map[string]any{"message": err.Error()}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": id, "error": body})
}
