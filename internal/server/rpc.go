package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/copyleftdev/layoutevo/internal/errors"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "layout.evaluate":
		var req LayoutRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.evaluate(req)
		}
	case "layout.plot":
		var req LayoutRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.plot(req)
		}
	case "layout.permutable_keys":
		var req LayoutRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.permutableKeys(req)
		}
	case "optimization.start":
		var req OptimizeRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.startOptimization(req)
		}
	case "optimization.status":
		var req struct {
			ID string `json:"optimization_id"`
		}
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.optimizationStatus(req.ID)
		}
	case "optimization.cancel":
		var req struct {
			ID string `json:"optimization_id"`
		}
		if err = decodeParams(request.Params, &req); err == nil {
			err = s.cancelOptimization(req.ID)
			result = map[string]string{"status": "cancellation requested"}
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := rpcServerError
		if apperrors.StatusFor(err) == http.StatusBadRequest {
			code = rpcInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// decodeParams decodes the first positional parameter into v.
func decodeParams(params []json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return optimization.NewError(optimization.ErrParse, "missing required parameters").WithComponent("rpc")
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return optimization.WrapError(optimization.ErrParse, err, "invalid parameter format, expected object").WithComponent("rpc")
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
