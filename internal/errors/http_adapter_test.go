package errors

import (
	"encoding/json"
	stdErrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"not found", NotFound("item", "123/45"), http.StatusNotFound},
		{"config", ConfigRequired("base-url"), http.StatusBadRequest},
		{"repository", RepositoryAccess("load item", stdErrors.New("db closed")), http.StatusBadGateway},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
		{"plain", stdErrors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.StatusCodeFor(tt.err))
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/123/45?format=oai_dc", nil)

	adapter.WriteErrorResponse(rec, req, NotFound("item", "123/45"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "item not found", body.Error)
	assert.Equal(t, "not_found", body.Code)
	assert.Equal(t, "123/45", body.Details["name"])
}

func TestHTTPErrorAdapter_HidesPlainErrors(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)
	resp := adapter.FormatErrorResponse(stdErrors.New("dsn=secret"))
	assert.Equal(t, "internal error", resp.Error)
}
