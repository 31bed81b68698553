// Package jsonrpc encodes the JSON-RPC 2.0 messages sent to the server under test.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version carried in every message.
const Version = "2.0"

// DefaultRequestID is the id attached to every case request.
const DefaultRequestID = 1

// MethodCancel asks the server to abandon the in-flight request.
const MethodCancel = "cancel"

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int         `json:"id"`
}

// Notification is a JSON-RPC 2.0 request without an id; the server sends no reply.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewRequest builds a request for method with the given params and id.
func NewRequest(method string, params interface{}, id int) Request {
	return Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

// Encode returns the wire form of the request.
func (r Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", r.Method, err)
	}
	return data, nil
}

// EncodeRequest is shorthand for NewRequest(method, params, id).Encode().
func EncodeRequest(method string, params interface{}, id int) ([]byte, error) {
	return NewRequest(method, params, id).Encode()
}

// EncodeCancel returns the wire form of the cancel notification.
func EncodeCancel() ([]byte, error) {
	data, err := json.Marshal(Notification{JSONRPC: Version, Method: MethodCancel})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cancel notification: %w", err)
	}
	return data, nil
}
