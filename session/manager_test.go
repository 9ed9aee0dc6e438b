package session_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/worldpet/go-auth-client/credstore"
	credrepofakes "github.com/worldpet/go-auth-client/credstore/repofakes"
	"github.com/worldpet/go-auth-client/guard"
	"github.com/worldpet/go-auth-client/session"
	"github.com/worldpet/go-auth-client/transport"
	"github.com/worldpet/go-auth-client/users"
)

var testUser = users.User{
	ID:          "1",
	Email:       "a@b.com",
	DisplayName: "Jane Owner",
	Role:        users.RoleOwner,
	TenantID:    "1",
}

type fixture struct {
	creds     *credrepofakes.FakeCredRepo
	manager   *session.Manager
	server    *httptest.Server
	meCalls   atomic.Int32
	anyCalls  atomic.Int32
	releaseMe chan struct{} // non-nil makes /auth/me block until closed
}

func newFixture(t *testing.T, configure func(f *fixture, r chi.Router)) *fixture {
	t.Helper()

	f := &fixture{creds: credrepofakes.NewFakeCredRepo()}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.anyCalls.Add(1)
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/auth/me", func(w http.ResponseWriter, req *http.Request) {
		f.meCalls.Add(1)
		if f.releaseMe != nil {
			<-f.releaseMe
		}
		if req.Header.Get("Authorization") != "Bearer valid-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(testUser)
	})
	if configure != nil {
		configure(f, r)
	}

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)

	client, err := transport.New(f.server.URL, f.creds)
	require.NoError(t, err)

	manager, err := session.New(f.creds, client)
	require.NoError(t, err)
	f.manager = manager
	return f
}

func TestResolveSession_EmptyStore(t *testing.T) {
	f := newFixture(t, nil)

	f.manager.ResolveSession(context.Background())

	state := f.manager.State()
	require.False(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Nil(t, state.User)
	require.Equal(t, int32(0), f.anyCalls.Load(), "empty store must not trigger any network call")
}

func TestResolveSession_ValidCredential(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "valid-token"}))

	f.manager.ResolveSession(context.Background())

	state := f.manager.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Equal(t, testUser, *state.User)
}

func TestResolveSession_RejectedCredential(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "revoked-token"}))

	f.manager.ResolveSession(context.Background())

	state := f.manager.State()
	require.False(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	_, ok := f.creds.Load()
	require.False(t, ok, "rejected credential must be cleared")
}

func TestResolveSession_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "valid-token"}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.manager.ResolveSession(context.Background())
		}()
	}
	wg.Wait()
	f.manager.ResolveSession(context.Background())

	require.Equal(t, int32(1), f.meCalls.Load(), "resolution must run exactly once")
	require.True(t, f.manager.State().IsAuthenticated)
}

func TestResolveSession_GuardShowsPlaceholderUntilResolved(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		f.releaseMe = make(chan struct{})
	})
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "valid-token"}))

	done := make(chan struct{})
	go func() {
		f.manager.ResolveSession(context.Background())
		close(done)
	}()

	// While resolution is in flight the only observable guard outcome is the
	// loading placeholder, never a redirect flash.
	for i := 0; i < 50; i++ {
		require.Equal(t, guard.ShowLoadingPlaceholder, guard.Evaluate(f.manager.State()))
	}

	close(f.releaseMe)
	<-done
	require.Equal(t, guard.Render, guard.Evaluate(f.manager.State()))
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			var body session.Credentials
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.Equal(t, "a@b.com", body.Email)
			require.Equal(t, "secret1", body.Password)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"user":          testUser,
			})
		})
	})

	err := f.manager.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)

	state := f.manager.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Equal(t, testUser, *state.User)

	saved, ok := f.creds.Load()
	require.True(t, ok)
	require.Equal(t, "access-1", saved.AccessToken)
	require.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect email or password"})
		})
	})

	err := f.manager.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, session.KindInvalidCredentials, session.KindOf(err))
	require.Equal(t, "Incorrect email or password", err.Error())

	state := f.manager.State()
	require.False(t, state.IsAuthenticated)
	require.False(t, state.IsLoading, "a failed login must never exit in a loading state")
	_, ok := f.creds.Load()
	require.False(t, ok)
}

func TestLogin_NetworkFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.server.Close()

	err := f.manager.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "secret1"})
	require.Error(t, err)
	require.Equal(t, session.KindUnknown, session.KindOf(err))
	require.Equal(t, "Something went wrong. Please try again.", err.Error())
	require.False(t, f.manager.State().IsLoading)
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/register", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.Equal(t, "owner", body["role"])
			require.Equal(t, "Jane Owner", body["full_name"])
			w.WriteHeader(http.StatusCreated)
		})
	})

	err := f.manager.Register(context.Background(), session.OwnerRegistration{
		FullName: "Jane Owner",
		Email:    "a@b.com",
		Phone:    "0123456789",
		Password: "longenough1",
	})
	require.NoError(t, err)

	state := f.manager.State()
	require.False(t, state.IsAuthenticated, "registration must not authenticate the new principal")
	require.False(t, state.IsLoading)
	_, ok := f.creds.Load()
	require.False(t, ok)
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/register", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"detail": "The user with this username already exists in the system.",
			})
		})
	})

	err := f.manager.Register(context.Background(), session.ClinicRegistration{
		ClinicName: "Happy Paws",
		Subdomain:  "happy-paws",
		Email:      "a@b.com",
		Password:   "longenough1",
	})
	require.Error(t, err)
	require.Equal(t, session.KindRegistrationConflict, session.KindOf(err))
	require.Equal(t, "The user with this username already exists in the system.", err.Error())
}

func TestLogout_AlwaysAnonymousWithoutIO(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "valid-token"}))
	f.manager.ResolveSession(context.Background())
	require.True(t, f.manager.State().IsAuthenticated)

	callsBefore := f.anyCalls.Load()
	f.manager.Logout()

	state := f.manager.State()
	require.False(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Nil(t, state.User)
	_, ok := f.creds.Load()
	require.False(t, ok)
	require.Equal(t, callsBefore, f.anyCalls.Load(), "logout must complete without network I/O")
}

func TestLogout_FromUnresolvedState(t *testing.T) {
	f := newFixture(t, nil)

	f.manager.Logout()

	state := f.manager.State()
	require.False(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
}

func TestSubscribe_BroadcastsTransitions(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"user":          testUser,
			})
		})
	})

	var (
		lock   sync.Mutex
		states []session.State
	)
	cancel := f.manager.Subscribe(func(state session.State) {
		lock.Lock()
		states = append(states, state)
		lock.Unlock()
	})

	require.NoError(t, f.manager.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "secret1"}))

	lock.Lock()
	require.Len(t, states, 2) // loading, then authenticated
	require.True(t, states[0].IsLoading)
	require.True(t, states[1].IsAuthenticated)
	lock.Unlock()

	cancel()
	f.manager.Logout()

	lock.Lock()
	require.Len(t, states, 2, "cancelled subscription must not be notified")
	lock.Unlock()
}

func TestConcurrency_StaleResolveDoesNotOverwriteLogin(t *testing.T) {
	loginUser := users.User{ID: "2", Email: "fresh@b.com", DisplayName: "Fresh", Role: users.RoleAdmin, TenantID: "1"}
	f := newFixture(t, func(f *fixture, r chi.Router) {
		f.releaseMe = make(chan struct{})
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-2",
				"refresh_token": "refresh-2",
				"user":          loginUser,
			})
		})
	})
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "valid-token"}))

	resolveDone := make(chan struct{})
	go func() {
		f.manager.ResolveSession(context.Background())
		close(resolveDone)
	}()
	require.Eventually(t, func() bool {
		return f.meCalls.Load() == 1
	}, time.Second, time.Millisecond, "resolution should be in flight")

	// The login below starts after resolution and completes first; when the
	// slow resolve finally lands its result must be discarded.
	require.NoError(t, f.manager.Login(context.Background(), session.Credentials{Email: "fresh@b.com", Password: "secret1"}))

	close(f.releaseMe)
	<-resolveDone

	state := f.manager.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, loginUser, *state.User)
}

func TestConcurrency_StaleResolveFailureDoesNotClearStore(t *testing.T) {
	loginUser := users.User{ID: "2", Email: "fresh@b.com", DisplayName: "Fresh", Role: users.RoleAdmin, TenantID: "1"}
	f := newFixture(t, func(f *fixture, r chi.Router) {
		f.releaseMe = make(chan struct{})
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-fresh",
				"refresh_token": "refresh-fresh",
				"user":          loginUser,
			})
		})
	})
	require.NoError(t, f.creds.Save(credstore.Credential{AccessToken: "revoked-token"}))

	resolveDone := make(chan struct{})
	go func() {
		f.manager.ResolveSession(context.Background())
		close(resolveDone)
	}()
	require.Eventually(t, func() bool {
		return f.meCalls.Load() == 1
	}, time.Second, time.Millisecond, "resolution should be in flight")

	// Login completes while the slow resolve is still blocked; the resolve's
	// eventual 401 lands stale and must leave the fresh pair untouched.
	require.NoError(t, f.manager.Login(context.Background(), session.Credentials{Email: "fresh@b.com", Password: "secret1"}))

	close(f.releaseMe)
	<-resolveDone

	state := f.manager.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, loginUser, *state.User)

	saved, ok := f.creds.Load()
	require.True(t, ok, "stale resolve failure must not clear the fresh login's tokens")
	require.Equal(t, "access-fresh", saved.AccessToken)
	require.Equal(t, "refresh-fresh", saved.RefreshToken)
}

func TestConcurrency_SupersededLoginDoesNotOverwriteCredentials(t *testing.T) {
	var loginCalls atomic.Int32
	releaseFirst := make(chan struct{})
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			n := loginCalls.Add(1)
			if n == 1 {
				<-releaseFirst
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  fmt.Sprintf("access-%d", n),
				"refresh_token": fmt.Sprintf("refresh-%d", n),
				"user":          testUser,
			})
		})
	})

	firstDone := make(chan struct{})
	go func() {
		_ = f.manager.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "secret1"})
		close(firstDone)
	}()
	require.Eventually(t, func() bool {
		return loginCalls.Load() == 1
	}, time.Second, time.Millisecond, "first login should be in flight")

	require.NoError(t, f.manager.Login(context.Background(), session.Credentials{Email: "a@b.com", Password: "secret1"}))

	close(releaseFirst)
	<-firstDone

	saved, ok := f.creds.Load()
	require.True(t, ok)
	require.Equal(t, "access-2", saved.AccessToken, "a superseded login must not overwrite the winning pair")
	require.Equal(t, "refresh-2", saved.RefreshToken)
}

func TestLogin_CancelledCallerContext(t *testing.T) {
	f := newFixture(t, func(f *fixture, r chi.Router) {
		r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"user":          testUser,
			})
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.manager.Login(ctx, session.Credentials{Email: "a@b.com", Password: "secret1"})
	require.Error(t, err)
	require.False(t, f.manager.State().IsLoading)
}
