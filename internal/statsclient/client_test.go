package statsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/stats"
)

// fakeUpstream stands in for the auth and statistics endpoints.
type fakeUpstream struct {
	authCalls  atomic.Int32
	statsCalls atomic.Int32

	mu         sync.Mutex
	tokens     []string // issued in order; the last one repeats
	statsFn    func(w http.ResponseWriter, r *http.Request, call int32)
	authStatus int
	authBody   string
	seenAuth   []string
}

func newFakeUpstream(t *testing.T, u *fakeUpstream) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api-token-auth/", func(w http.ResponseWriter, r *http.Request) {
		n := u.authCalls.Add(1)

		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		u.mu.Lock()
		defer u.mu.Unlock()
		if u.authStatus != 0 {
			w.WriteHeader(u.authStatus)
			_, _ = w.Write([]byte(u.authBody))
			return
		}
		if u.authBody != "" {
			_, _ = w.Write([]byte(u.authBody))
			return
		}

		token := u.tokens[len(u.tokens)-1]
		if int(n) <= len(u.tokens) {
			token = u.tokens[n-1]
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{Token: token, UserID: 1, Email: "root@example.com", IsStaff: true})
	})
	mux.HandleFunc("GET /statistics/", func(w http.ResponseWriter, r *http.Request) {
		n := u.statsCalls.Add(1)
		u.mu.Lock()
		u.seenAuth = append(u.seenAuth, r.Header.Get("Authorization"))
		fn := u.statsFn
		u.mu.Unlock()
		fn(w, r, n)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func serveSample(w http.ResponseWriter, _ *http.Request, _ int32) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats.Sample())
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL:  srv.URL + "/",
		Username: "root",
		Password: "12",
		Timeout:  2 * time.Second,
		Logger:   logger.Nop(),
	})
}

func TestFetchSnapshot_Success(t *testing.T) {
	up := &fakeUpstream{tokens: []string{"abc"}, statsFn: serveSample}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	assert.False(t, c.HasCredential())

	snap, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 35, snap.Total.AllUsers)
	assert.Equal(t, "Robo Futbol", snap.Directions[stats.KeyRoboFutbol].Name)
	assert.Equal(t, []string{"Token abc"}, up.seenAuth)
	assert.True(t, c.HasCredential())
}

func TestFetchSnapshot_ReusesCachedToken(t *testing.T) {
	up := &fakeUpstream{tokens: []string{"abc"}, statsFn: serveSample}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	for i := 0; i < 3; i++ {
		_, err := c.FetchSnapshot(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), up.authCalls.Load())
	assert.Equal(t, int32(3), up.statsCalls.Load())
}

func TestFetchSnapshot_RetriesOnceAfter401(t *testing.T) {
	up := &fakeUpstream{
		tokens: []string{"old", "new"},
		statsFn: func(w http.ResponseWriter, r *http.Request, _ int32) {
			if r.Header.Get("Authorization") != "Token new" {
				http.Error(w, `{"detail":"Invalid token."}`, http.StatusUnauthorized)
				return
			}
			serveSample(w, r, 0)
		},
	}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	snap, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 35, snap.Total.AllUsers)
	assert.Equal(t, int32(2), up.authCalls.Load())
	assert.Equal(t, int32(2), up.statsCalls.Load())
	assert.Equal(t, []string{"Token old", "Token new"}, up.seenAuth)
	assert.True(t, c.HasCredential())
}

func TestFetchSnapshot_Second401IsTerminal(t *testing.T) {
	up := &fakeUpstream{
		tokens: []string{"t1", "t2", "t3"},
		statsFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
			http.Error(w, `{"detail":"Invalid token."}`, http.StatusUnauthorized)
		},
	}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	_, err := c.FetchSnapshot(context.Background())
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTokenExpired, fe.Kind)
	assert.Equal(t, http.StatusUnauthorized, fe.Status)
	assert.Contains(t, fe.Error(), "after token refresh")
	assert.True(t, errors.Is(err, ErrTokenExpired))

	assert.Equal(t, int32(2), up.authCalls.Load(), "exactly one re-authentication")
	assert.Equal(t, int32(2), up.statsCalls.Load(), "exactly one retry")
	assert.False(t, c.HasCredential())
}

func TestFetchSnapshot_ServerErrorNotRetried(t *testing.T) {
	up := &fakeUpstream{
		tokens: []string{"abc"},
		statsFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	_, err := c.FetchSnapshot(context.Background())
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(1), up.statsCalls.Load())
	assert.True(t, c.HasCredential(), "a server error does not invalidate the token")
}

func TestFetchSnapshot_AuthRejected(t *testing.T) {
	up := &fakeUpstream{
		authStatus: http.StatusBadRequest,
		authBody:   `{"non_field_errors":["Unable to log in with provided credentials."]}`,
		statsFn:    serveSample,
	}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	_, err := c.FetchSnapshot(context.Background())
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindAuthFailure, fe.Kind)
	assert.Equal(t, http.StatusBadRequest, fe.Status)
	assert.Contains(t, fe.Message, "Unable to log in")
	assert.Equal(t, int32(0), up.statsCalls.Load())
}

func TestFetchSnapshot_AuthPayloadWithoutToken(t *testing.T) {
	up := &fakeUpstream{authBody: `{"user_id":1}`, statsFn: serveSample}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	_, err := c.FetchSnapshot(context.Background())
	assert.True(t, errors.Is(err, ErrAuthFailure))
	assert.Contains(t, err.Error(), "token missing")
}

func TestFetchSnapshot_AuthPayloadMalformed(t *testing.T) {
	up := &fakeUpstream{authBody: `<html>login</html>`, statsFn: serveSample}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	_, err := c.FetchSnapshot(context.Background())
	assert.True(t, errors.Is(err, ErrAuthFailure))
	assert.False(t, c.HasCredential())
}

func TestFetchSnapshot_DecodeFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing total", `{"directions":{}}`},
		{"missing directions", `{"total":{"all_users":1,"all_male":1,"all_female":0}}`},
		{"negative count", `{"total":{"all_users":-1,"all_male":0,"all_female":0},"directions":{}}`},
		{"wrong types", `{"total":{"all_users":"many"},"directions":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := &fakeUpstream{
				tokens: []string{"abc"},
				statsFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
					_, _ = w.Write([]byte(tc.body))
				},
			}
			srv := newFakeUpstream(t, up)
			c := newTestClient(srv)

			_, err := c.FetchSnapshot(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecodeFailure), "got %v", err)
			assert.Equal(t, int32(1), up.statsCalls.Load())
		})
	}
}

func TestFetchSnapshot_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Logger: logger.Nop()})

	_, err := c.FetchSnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportFailure))
}

func TestFetchSnapshot_Timeout(t *testing.T) {
	up := &fakeUpstream{
		tokens: []string{"abc"},
		statsFn: func(w http.ResponseWriter, r *http.Request, _ int32) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	}
	srv := newFakeUpstream(t, up)
	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: logger.Nop()})

	_, err := c.FetchSnapshot(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClearCredential_ForcesFreshAuth(t *testing.T) {
	up := &fakeUpstream{tokens: []string{"a", "b"}, statsFn: serveSample}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	_, err := c.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, c.HasCredential())

	c.ClearCredential()
	assert.False(t, c.HasCredential())

	_, err = c.FetchSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.authCalls.Load())
	assert.Equal(t, []string{"Token a", "Token b"}, up.seenAuth)
}

func TestFetchSnapshot_ConcurrentCallersShareOneLogin(t *testing.T) {
	up := &fakeUpstream{tokens: []string{"abc"}, statsFn: serveSample}
	srv := newFakeUpstream(t, up)
	c := newTestClient(srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchSnapshot(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), up.authCalls.Load())
}

func TestAdminURL(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:8000/", Logger: logger.Nop()})
	assert.Equal(t, "http://127.0.0.1:8000/admin/", c.AdminURL())
}

func TestTestConnection(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		up := &fakeUpstream{tokens: []string{"abc"}, statsFn: serveSample}
		c := newTestClient(newFakeUpstream(t, up))

		report := c.TestConnection(context.Background())
		assert.True(t, report.OK)
		assert.True(t, report.HasCredential)
	})

	t.Run("auth rejected", func(t *testing.T) {
		up := &fakeUpstream{authStatus: http.StatusBadRequest, authBody: "nope", statsFn: serveSample}
		c := newTestClient(newFakeUpstream(t, up))

		report := c.TestConnection(context.Background())
		assert.False(t, report.OK)
		assert.True(t, strings.HasPrefix(report.Message, "token acquisition failed"))
	})

	t.Run("no retry on 401", func(t *testing.T) {
		up := &fakeUpstream{
			tokens: []string{"abc"},
			statsFn: func(w http.ResponseWriter, _ *http.Request, _ int32) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		}
		c := newTestClient(newFakeUpstream(t, up))

		report := c.TestConnection(context.Background())
		assert.False(t, report.OK)
		assert.Contains(t, report.Message, "401")
		assert.Equal(t, int32(1), up.statsCalls.Load())
	})
}

func TestMemoryStore_ClearIf(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.ClearIf(""))

	s.Set("new")
	assert.False(t, s.ClearIf("old"))
	tok, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "new", tok)

	assert.True(t, s.ClearIf("new"))
	_, ok = s.Get()
	assert.False(t, ok)
}

func TestAuthLimiter_UnlimitedByDefault(t *testing.T) {
	l := newAuthLimiter(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx))
	}
}

func TestAuthLimiter_Throttles(t *testing.T) {
	l := newAuthLimiter(0.1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.Error(t, l.Wait(ctx), "burst exhausted")
}
