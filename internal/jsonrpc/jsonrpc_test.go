package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	params := map[string]json.RawMessage{
		"max-depth": json.RawMessage(`1`),
		"state":     json.RawMessage(`{"tag":"App","args":[]}`),
	}

	data, err := EncodeRequest("execute", params, DefaultRequestID)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"jsonrpc": "2.0",
		"method": "execute",
		"params": {"max-depth": 1, "state": {"tag": "App", "args": []}},
		"id": 1
	}`, string(data))
}

func TestEncodeRequest_NoParams(t *testing.T) {
	data, err := EncodeRequest("ping", nil, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"ping","id":7}`, string(data))
}

func TestEncodeRequest_Unencodable(t *testing.T) {
	_, err := EncodeRequest("execute", map[string]interface{}{"bad": make(chan int)}, 1)
	assert.Error(t, err)
}

func TestEncodeCancel(t *testing.T) {
	data, err := EncodeCancel()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"cancel"}`, string(data))
}
