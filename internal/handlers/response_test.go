package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/notelet/notelet-backend/internal/apierr"
	"github.com/notelet/notelet-backend/internal/services"
)

func respondFor(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondServiceError(c, err)

	var env ErrorEnvelope
	if decErr := json.Unmarshal(rec.Body.Bytes(), &env); decErr != nil {
		t.Fatalf("decode envelope: %v (body=%q)", decErr, rec.Body.String())
	}
	return rec.Code, env
}

func TestRespondServiceError_Taxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("session: %w", services.ErrNotFound), http.StatusNotFound, "not_found"},
		{"validation", fmt.Errorf("chunk too large: %w", services.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{"invalid state", fmt.Errorf("session is paused: %w", services.ErrInvalidState), http.StatusBadRequest, "invalid_state"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := respondFor(t, tc.err)
			if status != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, status)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("code: want=%q got=%q", tc.wantCode, env.Error.Code)
			}
			if env.Error.Message == "" {
				t.Fatalf("message: want non-empty")
			}
		})
	}
}

func TestRespondServiceError_APIErrorPassthrough(t *testing.T) {
	err := apierr.New(http.StatusTooManyRequests, "rate_limited", errors.New("slow down"))
	status, env := respondFor(t, err)
	if status != http.StatusTooManyRequests {
		t.Fatalf("status: want=%d got=%d", http.StatusTooManyRequests, status)
	}
	if env.Error.Code != "rate_limited" {
		t.Fatalf("code: want=%q got=%q", "rate_limited", env.Error.Code)
	}
	if env.Error.Message != "slow down" {
		t.Fatalf("message: want=%q got=%q", "slow down", env.Error.Message)
	}
}
