package utils

import (
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "The asset 671 does not exist", NewAssetNotFoundError("671").Error())
	assert.Equal(t, "The asset 672 already exists", NewAssetExistsError("672").Error())

	origin := errors.New("connection refused")
	err := NewAppError(ErrDatabase, "failed to read state", origin)
	assert.Equal(t, "failed to read state: connection refused", err.Error())
	assert.Equal(t, origin, errors.Cause(err.Unwrap()))
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	wrapped := errors.Wrap(NewAssetNotFoundError("9"), "read asset")

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrAssetNotFound, appErr.Code)
	assert.True(t, IsErrorCode(wrapped, ErrAssetNotFound))
	assert.False(t, IsErrorCode(errors.New("plain"), ErrAssetNotFound))
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(NewUnauthorizedError("no token")))
	assert.True(t, IsAuthError(NewForbiddenChannelError("org3", "channel1")))
	assert.False(t, IsAuthError(NewAssetExistsError("1")))
}

func TestAppErrorToHTTPStatus(t *testing.T) {
	cases := map[string]int{
		ErrAssetNotFound:      http.StatusNotFound,
		ErrUserNotFound:       http.StatusNotFound,
		ErrInvalidInput:       http.StatusBadRequest,
		ErrUnknownOrg:         http.StatusBadRequest,
		ErrInvalidCredentials: http.StatusUnauthorized,
		ErrForbidden:          http.StatusForbidden,
		ErrAssetExists:        http.StatusConflict,
		ErrDuplicate:          http.StatusConflict,
		ErrNotFound:           http.StatusNotFound,
		ErrMessageRejected:    http.StatusInternalServerError,
		ErrActorTimeout:       http.StatusInternalServerError,
		"SOMETHING_ELSE":      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, AppErrorToHTTPStatus(code), code)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementRequests()
	mc.IncrementRequests()
	mc.IncrementErrors()
	mc.AddOperationLatency("create_asset", 10*time.Millisecond)
	mc.AddOperationLatency("create_asset", 30*time.Millisecond)

	snap := mc.Snapshot()
	assert.Equal(t, uint64(2), snap.Requests)
	assert.Equal(t, uint64(1), snap.Errors)
	require.Contains(t, snap.Operations, "create_asset")
	assert.Equal(t, 2, snap.Operations["create_asset"].Count)
	assert.Equal(t, 20*time.Millisecond, snap.Operations["create_asset"].AverageLatency)
	assert.Equal(t, 30*time.Millisecond, snap.Operations["create_asset"].MaxLatency)
}
