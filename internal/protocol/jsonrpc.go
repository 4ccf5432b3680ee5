// ABOUTME: JSON-RPC 2.0 message envelopes, error codes, and parsing.
// ABOUTME: Request IDs are carried as raw JSON and echoed back verbatim.

package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the only JSON-RPC version this server speaks.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Domain error codes in the implementation-defined server range.
const (
	CodeAuthError           = -32001
	CodeToolNotFound        = -32002
	CodeToolExecutionFailed = -32003
	CodeResourceNotFound    = -32004
	CodePromptNotFound      = -32005
)

// Request represents a JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id and therefore
// must never receive a reply.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response represents a JSON-RPC 2.0 response. Exactly one of Result and
// Error is set; the constructors below enforce this.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface so protocol errors can flow
// through normal error returns.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewResult builds a success response echoing the given id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewError builds an error response echoing the given id. A nil id
// serializes as null, which is the required shape for parse failures
// where no id could be read.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}

// NewErrorWithData builds an error response carrying structured data.
func NewErrorWithData(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

// Parse decodes a single JSON-RPC message. On failure it returns a
// ready-to-send error response instead of a request: malformed JSON
// yields a parse error with a null id, a syntactically valid message
// that is not a JSON-RPC 2.0 request yields an invalid request error.
func Parse(raw []byte) (*Request, *Response) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, NewError(nil, CodeParseError, "invalid JSON")
	}
	if req.JSONRPC != Version {
		return nil, NewError(req.ID, CodeInvalidRequest, "invalid JSON-RPC version")
	}
	if req.Method == "" {
		return nil, NewError(req.ID, CodeInvalidRequest, "missing method")
	}
	return &req, nil
}
