package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/checker"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/core/suggest"
)

func TestFromLookupError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"invalid domain", fmt.Errorf("split: %w", core.ErrInvalidDomain), CodeInvalidInput, http.StatusBadRequest},
		{"empty name", suggest.ErrEmptyName, CodeInvalidInput, http.StatusBadRequest},
		{"no rdap data", checker.ErrNoRDAPData, CodeNotFound, http.StatusNotFound},
		{"rate limited", fmt.Errorf("rdap: %w", checker.ErrRateLimited), CodeRateLimited, http.StatusTooManyRequests},
		{"upstream", fmt.Errorf("%w: rdap lookup for google.com: 503", checker.ErrUpstream), CodeExternalService, http.StatusBadGateway},
		{"superseded", engine.ErrSuperseded, CodeTimeout, http.StatusGatewayTimeout},
		{"deadline", context.DeadlineExceeded, CodeTimeout, http.StatusGatewayTimeout},
		{"other", fmt.Errorf("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := FromLookupError(ctx, tt.err, "lookup failed")
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.status, HTTPStatusFromEnvelope(env))
			assert.Equal(t, tt.err.Error(), env.Context["wrapped_error"])
			assert.NotEmpty(t, env.CorrelationID)
		})
	}
}

func TestRespondWithErrorWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/domainInfo?domain=x.com", nil)

	RespondWithError(rec, req, WrapNotFound(req.Context(), checker.ErrNoRDAPData, "Domain information not available"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeNotFound, body.Error.Code)
	assert.Equal(t, "Domain information not available", body.Error.Message)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestEnsureEnvelopeWrapsPlainErrors(t *testing.T) {
	env := EnsureEnvelope(fmt.Errorf("disk full"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, "disk full", env.Context["wrapped_error"])

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}
