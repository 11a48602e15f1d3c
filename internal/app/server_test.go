package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillswap/cfg"
	"skillswap/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := &cfg.Config{
		AppEnv:              "test",
		HTTPAddr:            ":0",
		StorageDriver:       cfg.StorageMemory,
		SnowflakeNode:       1,
		SessionTTL:          time.Hour,
		MatchCacheTTL:       time.Minute,
		AdminEmails:         []string{"admin@example.com"},
		TrustIdentityHeader: true,
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		Redis:               cfg.RedisConfig{Embedded: true},
	}

	s, err := NewServer(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, s.Shutdown(ctx))
	})
	return s
}

func call(t *testing.T, s *Server, method, path, actorID string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(identity.MemberIDHeader, actorID)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

// NewServer registers collectors on the default Prometheus registry, so the
// whole flow runs against a single server.
func TestServerEndToEnd(t *testing.T) {
	s := newTestServer(t)

	register := func(name, email string, offered, wanted []string) string {
		var m struct {
			ID string `json:"id"`
		}
		code := call(t, s, http.MethodPost, "/members", "", map[string]any{
			"name":           name,
			"email":          email,
			"skills_offered": offered,
			"skills_wanted":  wanted,
		}, &m)
		require.Equal(t, http.StatusCreated, code)
		require.NotEmpty(t, m.ID)
		return m.ID
	}

	alice := register("Alice", "alice@example.com", []string{"Python"}, []string{"Design"})
	bob := register("Bob", "bob@example.com", []string{"Graphic Design"}, []string{"Python"})
	admin := register("Admin", "admin@example.com", nil, nil)

	t.Run("healthz", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/healthz", "", nil, nil))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(t, s, http.MethodGet, "/matches", "", nil, nil))
	})

	t.Run("mutual match", func(t *testing.T) {
		var resp struct {
			Matches []struct {
				Kind string `json:"match_kind"`
			} `json:"matches"`
		}
		require.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/matches", alice, nil, &resp))
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, "mutual", resp.Matches[0].Kind)
	})

	var swapID string
	t.Run("create and accept", func(t *testing.T) {
		var r struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		code := call(t, s, http.MethodPost, "/swaps", alice, map[string]any{
			"recipient_id":  bob,
			"skill_offered": "Python",
			"skill_wanted":  "Graphic Design",
		}, &r)
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "pending", r.Status)
		swapID = r.ID

		require.Equal(t, http.StatusOK, call(t, s, http.MethodPost, "/swaps/"+swapID+"/accept", bob, nil, &r))
		assert.Equal(t, "accepted", r.Status)
	})

	t.Run("admin routes", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodGet, "/admin/overview", alice, nil, nil))
		assert.Equal(t, http.StatusForbidden,
			call(t, s, http.MethodPost, "/admin/swaps/"+swapID+"/force-cancel", alice, nil, nil))

		var r struct {
			Status string `json:"status"`
		}
		require.Equal(t, http.StatusOK,
			call(t, s, http.MethodPost, "/admin/swaps/"+swapID+"/force-cancel", admin, nil, &r))
		assert.Equal(t, "cancelled", r.Status)

		var o struct {
			Swaps map[string]int `json:"swaps"`
		}
		require.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/admin/overview", admin, nil, &o))
		assert.Equal(t, 1, o.Swaps["cancelled"])
	})
}
