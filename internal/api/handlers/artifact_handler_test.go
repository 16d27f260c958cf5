package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/MCooperBorkenhagen/gtools/internal/artifact"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mapArtifactError is the one spot translating storage-layer failures onto
// status codes, so every branch of the taxonomy is pinned here.
func TestMapArtifactError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed path", fmt.Errorf("object run1: %w", artifact.ErrMalformedPath), http.StatusBadRequest},
		{"missing object", fmt.Errorf("object run1/id1/config.json: %w", artifact.ErrObjectNotFound), http.StatusNotFound},
		{"broken content", fmt.Errorf("object run1/id1/config.json: %w", artifact.ErrDeserialize), http.StatusBadGateway},
		{"unclassified", errors.New("dial tcp: connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			mapArtifactError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusInternalServerError {
				// Unclassified failures must not leak their detail.
				assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), tc.err.Error())
			}
		})
	}
}
