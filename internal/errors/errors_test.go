package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{"validation", ErrValidationFailed, http.StatusBadRequest},
		{"not loaded", ErrDatasetNotLoaded, http.StatusServiceUnavailable},
		{"schema", ErrSchemaMismatch, http.StatusUnprocessableEntity},
		{"source", ErrSourceUnavailable, http.StatusFailedDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			require.NoError(t, render.Render(w, r, tt.apiError))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.apiError.ErrorCode, body.ErrorCode)
		})
	}
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "region", Message: "unknown region"},
		{Field: "from", Message: "must be a year"},
	})

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, CodeValidationFailed, err.ErrorCode)
	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)

	single := ErrValidation("to", "must be a year")
	assert.Equal(t, ValidationErrors{Errors: []ValidationError{{Field: "to", Message: "must be a year"}}}, single.Details)
}

func TestAPIError_WithDetailsCopies(t *testing.T) {
	detailed := ErrSchemaMismatch.WithDetails("sheet øst-norge(NO1)")

	assert.Equal(t, "sheet øst-norge(NO1)", detailed.Details)
	assert.Nil(t, ErrSchemaMismatch.Details, "predefined error must stay untouched")
	assert.Equal(t, ErrSchemaMismatch.StatusCode, detailed.StatusCode)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("export view")
	assert.Equal(t, "export view not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}

