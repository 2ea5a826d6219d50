// Package mcp is the line-framed JSON-RPC 2.0 tool server over stdio:
// one request per input line, at most one response line per request,
// flushed immediately. Notifications (requests without an id)
// produce no response.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/krasmussen37/ess/internal/apperr"
	"github.com/krasmussen37/ess/internal/app"
)

const jsonrpcVersion = "2.0"

// ServerName and ServerVersion identify this server in initialize
// responses.
const (
	ServerName    = "ess"
	ServerVersion = "0.4.0"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Server dispatches JSON-RPC requests onto the shared App. The App is
// opened lazily on the first tool call, so protocol-only exchanges
// (initialize, tools/list) work without a store on disk.
type Server struct {
	openApp func(context.Context) (*app.App, error)
	app     *app.App
}

// NewServer builds a Server that opens the default App on demand.
func NewServer() *Server {
	return &Server{openApp: app.Open}
}

// NewServerWithApp builds a Server over an already-open App; used by the
// CLI (which has one open anyway) and by tests.
func NewServerWithApp(a *app.App) *Server {
	return &Server{app: a}
}

func (s *Server) ensureApp(ctx context.Context) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := s.openApp(ctx)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

// Run reads requests line by line from in until it closes, writing each
// response as one line to out.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	writer := bufio.NewWriter(out)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if reply, ok := s.handleLine(ctx, line); ok {
			if _, err := writer.Write(reply); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			if err := writer.WriteByte('\n'); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			if err := writer.Flush(); err != nil {
				return fmt.Errorf("failed to flush response: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request line: %w", err)
	}
	return nil
}

// handleLine processes one request line. The bool result is false for
// notifications, which produce no output.
func (s *Server) handleLine(ctx context.Context, line []byte) ([]byte, bool) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return marshalResponse(errorResponse(nil, apperr.CodeParseError, "Parse error", err.Error())), true
	}

	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	if req.JSONRPC != jsonrpcVersion {
		if isNotification {
			return nil, false
		}
		return marshalResponse(errorResponse(req.ID, apperr.CodeInvalidRequest, "Invalid Request", `jsonrpc must be "2.0"`)), true
	}

	resp := s.dispatch(ctx, req)
	if isNotification {
		return nil, false
	}
	return marshalResponse(resp), true
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"serverInfo": map[string]any{
				"name":    ServerName,
				"version": ServerVersion,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
		})

	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": toolSchemas()})

	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return errorResponse(req.ID, apperr.CodeInvalidParams, "Invalid params", "tools/call requires params.name")
		}

		a, err := s.ensureApp(ctx)
		if err != nil {
			return errorResponse(req.ID, apperr.CodeToolFailure, "Tool execution failed", err.Error())
		}

		result, err := callTool(ctx, a, params.Name, params.Arguments)
		if err != nil {
			return errorResponse(req.ID, apperr.CodeToolFailure, "Tool execution failed", err.Error())
		}
		return resultResponse(req.ID, result)

	default:
		return errorResponse(req.ID, apperr.CodeMethodNotFound, "Method not found",
			fmt.Sprintf("Unknown method %q", req.Method))
	}
}

func resultResponse(id json.RawMessage, result any) response {
	return response{JSONRPC: jsonrpcVersion, ID: normalizeID(id), Result: result}
}

func errorResponse(id json.RawMessage, code int, message, data string) response {
	return response{JSONRPC: jsonrpcVersion, ID: normalizeID(id), Error: &responseError{Code: code, Message: message, Data: data}}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func marshalResponse(resp response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		// The response shapes above always marshal; this covers a tool
		// returning something unencodable.
		fallback := response{
			JSONRPC: jsonrpcVersion,
			ID:      resp.ID,
			Error:   &responseError{Code: apperr.CodeToolFailure, Message: "Tool execution failed", Data: err.Error()},
		}
		out, _ = json.Marshal(fallback)
	}
	return out
}
