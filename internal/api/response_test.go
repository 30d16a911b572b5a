package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		status  bool
		message string
		payload any
	}{
		{"ok without payload", true, "ok", nil},
		{"failure with map", false, "error: not found", map[string]any{"code": 404}},
		{"empty message", true, "", []string{"a", "b"}},
		{"scalar payload", false, "count", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse(tt.status, tt.message, tt.payload)
			assert.Equal(t, tt.status, resp.GetStatus())
			assert.Equal(t, tt.message, resp.GetMessage())
			assert.Equal(t, tt.payload, resp.GetAdditionalPayload())
		})
	}
}

func TestResponseOkExample(t *testing.T) {
	resp := NewResponse(true, "ok", nil)
	assert.True(t, resp.GetStatus())
	assert.Equal(t, "ok", resp.GetMessage())
	assert.Nil(t, resp.GetAdditionalPayload())
}

func TestResponsePayloadIsShared(t *testing.T) {
	payload := map[string]any{"code": 404}
	resp := NewResponse(false, "error: not found", payload)

	got, ok := resp.GetAdditionalPayload().(map[string]any)
	require.True(t, ok)

	// Mutating the caller's map is visible through the envelope.
	payload["code"] = 410
	assert.Equal(t, 410, got["code"])

	ptr := &struct{ N int }{N: 1}
	resp.SetAdditionalPayload(ptr)
	assert.Same(t, ptr, resp.GetAdditionalPayload())
}

func TestSettersTouchOnlyTheirField(t *testing.T) {
	payload := []int{1, 2, 3}
	resp := NewResponse(true, "first", payload)

	resp.SetStatus(false)
	assert.False(t, resp.GetStatus())
	assert.Equal(t, "first", resp.GetMessage())
	assert.Equal(t, payload, resp.GetAdditionalPayload())

	resp.SetMessage("second")
	assert.False(t, resp.GetStatus())
	assert.Equal(t, "second", resp.GetMessage())
	assert.Equal(t, payload, resp.GetAdditionalPayload())

	resp.SetAdditionalPayload("third")
	assert.False(t, resp.GetStatus())
	assert.Equal(t, "second", resp.GetMessage())
	assert.Equal(t, "third", resp.GetAdditionalPayload())

	resp.SetAdditionalPayload(nil)
	assert.Nil(t, resp.GetAdditionalPayload())
}

func TestWithMethodsLeaveReceiverUntouched(t *testing.T) {
	payload := map[string]int{"n": 1}
	orig := Success("done", payload)

	flipped := orig.WithStatus(false)
	renamed := orig.WithMessage("renamed")
	swapped := orig.WithAdditionalPayload("other")

	assert.True(t, orig.GetStatus())
	assert.Equal(t, "done", orig.GetMessage())
	assert.Equal(t, payload, orig.GetAdditionalPayload())

	assert.False(t, flipped.GetStatus())
	assert.Equal(t, "done", flipped.GetMessage())
	assert.Equal(t, "renamed", renamed.GetMessage())
	assert.Equal(t, "other", swapped.GetAdditionalPayload())

	// Copies share the payload reference.
	payload["n"] = 2
	assert.Equal(t, 2, flipped.GetAdditionalPayload().(map[string]int)["n"])
}

func TestSuccessAndFailure(t *testing.T) {
	assert.True(t, Success("ok", nil).GetStatus())
	assert.False(t, Failure("nope", nil).GetStatus())
}

func TestResponseWireFormat(t *testing.T) {
	b, err := json.Marshal(NewResponse(false, "error: not found", map[string]any{"code": 404}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":false,"message":"error: not found","additionalPayload":{"code":404}}`, string(b))

	b, err = json.Marshal(NewResponse(true, "", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":true,"message":"","additionalPayload":null}`, string(b))

	// Both envelope forms put the same three members on the wire.
	b, err = json.Marshal(NewTyped[any](true, "", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":true,"message":"","additionalPayload":null}`, string(b))
}

func TestFailCarriesCode(t *testing.T) {
	resp := Fail("Invalid token", "INVALID_TOKEN")
	assert.False(t, resp.GetStatus())
	assert.Equal(t, &ErrorPayload{Code: "INVALID_TOKEN"}, resp.GetAdditionalPayload())

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":false,"message":"Invalid token","additionalPayload":{"code":"INVALID_TOKEN"}}`, string(b))
}

func TestResponseDecodeDefaults(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"message":null}`), &resp))
	assert.False(t, resp.GetStatus())
	assert.Equal(t, "", resp.GetMessage())
	assert.Nil(t, resp.GetAdditionalPayload())
}

func TestTypedUntyped(t *testing.T) {
	login := LoginPayload{Token: "t", Username: "User1", Organization: "org1"}
	typed := NewTyped(true, "logged in", login)

	resp := typed.Untyped()
	assert.True(t, resp.GetStatus())
	assert.Equal(t, "logged in", resp.GetMessage())
	assert.Equal(t, login, resp.GetAdditionalPayload())

	b, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Typed[LoginPayload]
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, *typed, decoded)
}
