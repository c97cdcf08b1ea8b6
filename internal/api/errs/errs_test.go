package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   ErrCode
		wantStatus int
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("accept: %w", &dispatch.ValidationError{Field: "price", Reason: "must be positive"}),
			wantCode:   InvalidArgument,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "illegal transition",
			err:        &dispatch.TransitionError{Transition: dispatch.TransitionComplete, From: dispatch.PhaseIdle},
			wantCode:   FailedPrecondition,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "worker taken",
			err:        dispatch.ErrWorkerUnavailable,
			wantCode:   FailedPrecondition,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "stale state",
			err:        fmt.Errorf("cancel: %w", dispatch.ErrStaleState),
			wantCode:   Aborted,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "no tracked order",
			err:        dispatch.ErrNoTrackedOrder,
			wantCode:   NotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store unreachable",
			err:        errors.New("dial tcp: connection refused"),
			wantCode:   Unavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "corrupt row",
			err:        dispatch.ErrInvariantViolation,
			wantCode:   Internal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDomain(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus())
			assert.Equal(t, tt.err.Error(), got.Message)
		})
	}
}

func TestError_Encode(t *testing.T) {
	data, contentType, err := Newf(NotFound, "worker %s not found", "w1").Encode()
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"code":"not_found","message":"worker w1 not found"}`, string(data))
}

func TestCheck(t *testing.T) {
	type request struct {
		Price    string `json:"price" validate:"required"`
		Scenario string `json:"scenario" validate:"required,max=10"`
	}

	require.NoError(t, Check(request{Price: "10", Scenario: "leak"}))

	err := Check(request{Scenario: "a very long scenario"})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.ElementsMatch(t, FieldErrors{
		{Field: "price", Err: "failed on 'required' validation"},
		{Field: "scenario", Err: "failed on 'max' validation"},
	}, fields)

	wrapped := New(InvalidArgument, err)
	assert.True(t, IsError(wrapped))
	assert.Equal(t, InvalidArgument, GetError(fmt.Errorf("ctx: %w", wrapped)).Code)
}
