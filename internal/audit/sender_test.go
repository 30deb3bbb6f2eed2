package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofratec/erp-app/internal/apiclient"
	"github.com/sofratec/erp-app/internal/auth"
)

// Batches must reach the audit endpoint with the service token attached:
// they are posted outside any browser session.
func TestSenderPostsAuthenticatedBatch(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody struct {
		Events []Event `json:"events"`
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer backend.Close()

	api := apiclient.New(backend.URL).WithTokens(auth.StaticToken("svc-audit"))
	s := NewSender(api, "v1")

	err := s.PostBatch(context.Background(), []Event{{ID: "e1", Action: "login", Actor: "marie@example.fr"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer svc-audit", gotAuth)
	assert.Equal(t, "/v1/audit/events", gotPath)
	require.Len(t, gotBody.Events, 1)
	assert.Equal(t, "login", gotBody.Events[0].Action)
}
