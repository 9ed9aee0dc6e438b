package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/worldpet/go-auth-client/credstore"
	"github.com/worldpet/go-auth-client/internal/metrics"
	"github.com/worldpet/go-auth-client/transport"
	"github.com/worldpet/go-auth-client/users"
)

const (
	mePath       = "/auth/me"
	loginPath    = "/auth/login"
	registerPath = "/auth/register"

	resolveKey = "resolve"
)

type subscriber struct {
	id int
	fn func(State)
}

// Manager owns the authentication state machine and is the single writer of
// State. It starts Unresolved (loading, no user) and moves between
// Authenticated and Anonymous for the rest of the application lifetime.
//
// Every transition carries a monotonically increasing generation token that
// is compared before commit, so a stale async result can never overwrite the
// outcome of a call that completed after it (last-write-wins, whole-value
// replacement of User). Credential store writes ride the same guard: a call
// mutates the store only after its own transition commits, so a superseded
// call can neither clear nor overwrite the winning call's token pair.
type Manager struct {
	creds   credstore.Repo
	client  *transport.Client
	log     zerolog.Logger
	metrics *metrics.Metrics

	lock      sync.Mutex
	state     State
	gen       uint64 // last issued transition generation
	committed uint64 // generation of the last committed transition
	resolved  bool
	nextSubID int
	subs      []subscriber

	resolveGroup singleflight.Group
}

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

// WithLogger sets the logger (defaults to a no-op logger).
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = logger
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// New initializes a session manager in the Unresolved state.
func New(creds credstore.Repo, client *transport.Client, options ...Option) (*Manager, error) {
	if creds == nil {
		return nil, errors.New("[session.New] credential repo is required")
	}
	if client == nil {
		return nil, errors.New("[session.New] transport client is required")
	}

	manager := &Manager{
		creds:  creds,
		client: client,
		log:    zerolog.Nop(),
		state:  loading(),
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// State returns the current session state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Subscribe registers fn to be called after every committed state transition.
// The returned cancel function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	m.lock.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	m.lock.Unlock()

	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		for i, sub := range m.subs {
			if sub.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// ResolveSession performs silent re-authentication from the credential store.
// It runs to completion exactly once per application lifetime: concurrent
// calls share the in-flight resolution and later calls short-circuit. With an
// empty store it lands in Anonymous without any network call; any verify
// failure clears the store and lands in Anonymous without surfacing an error.
func (m *Manager) ResolveSession(ctx context.Context) {
	m.lock.Lock()
	alreadyResolved := m.resolved
	m.lock.Unlock()
	if alreadyResolved {
		return
	}

	_, _, _ = m.resolveGroup.Do(resolveKey, func() (any, error) {
		m.resolve(ctx)
		return nil, nil
	})
}

func (m *Manager) resolve(ctx context.Context) {
	m.lock.Lock()
	if m.resolved {
		m.lock.Unlock()
		return
	}
	m.lock.Unlock()

	g := m.begin()

	credential, ok := m.creds.Load()
	if !ok || credential.Empty() {
		m.finishResolve(g, anonymous())
		return
	}

	var user users.User
	if err := m.client.Call(ctx, http.MethodGet, mePath, nil, &user); err != nil {
		m.log.Debug().Err(err).Msg("silent re-authentication failed")
		if m.finishResolve(g, anonymous()) {
			_ = m.creds.Clear()
		}
		return
	}

	if m.metrics != nil {
		m.metrics.SilentReauths.Inc()
	}
	m.log.Debug().Str("user_id", user.ID).Msg("session restored from stored credentials")
	m.finishResolve(g, authenticated(&user))
}

func (m *Manager) finishResolve(g uint64, state State) bool {
	m.lock.Lock()
	m.resolved = true
	m.lock.Unlock()
	return m.commit(g, state)
}

type loginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         users.User `json:"user"`
}

// Login exchanges pre-validated credentials for a token pair. On success both
// tokens are persisted and the state becomes Authenticated; on failure the
// state reverts to Anonymous and the error carries the message to display.
func (m *Manager) Login(ctx context.Context, credentials Credentials) error {
	g := m.begin()
	m.commit(g, loading())

	var resp loginResponse
	err := m.client.Call(ctx, http.MethodPost, loginPath, credentials, &resp)
	if err == nil && ctx.Err() != nil {
		// The owning view is gone; disregard the late result.
		err = errors.Wrap(ctx.Err(), "[Manager.Login] caller context done")
	}
	if err != nil {
		m.commit(g, anonymous())
		if m.metrics != nil {
			m.metrics.LoginFailures.Inc()
		}
		return translateLoginError(err)
	}

	if !m.commit(g, authenticated(&resp.User)) {
		return nil
	}
	if err := m.creds.Save(credstore.Credential{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist credential pair")
	}
	if m.metrics != nil {
		m.metrics.Logins.Inc()
	}
	return nil
}

// Register submits a registration payload. It does not authenticate the new
// principal; on success the caller is expected to route to login.
func (m *Manager) Register(ctx context.Context, registration Registration) error {
	var body any
	switch payload := registration.(type) {
	case OwnerRegistration:
		body = ownerRegistrationBody{OwnerRegistration: payload, Role: payload.registrationRole()}
	case ClinicRegistration:
		body = clinicRegistrationBody{ClinicRegistration: payload, Role: payload.registrationRole()}
	default:
		return errors.New("[Manager.Register] unsupported registration payload")
	}

	prior := m.State()
	if prior.IsLoading {
		prior = anonymous()
	}

	g := m.begin()
	m.commit(g, loading())

	err := m.client.Call(ctx, http.MethodPost, registerPath, body, nil)
	m.commit(g, prior)
	if err != nil {
		return translateRegisterError(err)
	}
	if m.metrics != nil {
		m.metrics.Registrations.Inc()
	}
	return nil
}

// Logout clears the credential store and transitions to Anonymous
// immediately. It is synchronous, makes no network call and never fails.
func (m *Manager) Logout() {
	g := m.begin()

	m.lock.Lock()
	m.resolved = true
	m.lock.Unlock()

	if !m.commit(g, anonymous()) {
		return
	}
	_ = m.creds.Clear()
	if m.metrics != nil {
		m.metrics.Logouts.Inc()
	}
}

func (m *Manager) begin() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.gen++
	return m.gen
}

// commit applies the transition unless a newer-issued call already committed,
// then notifies subscribers outside the lock.
func (m *Manager) commit(g uint64, state State) bool {
	m.lock.Lock()
	if g < m.committed {
		m.lock.Unlock()
		m.log.Debug().Uint64("generation", g).Msg("discarding stale state transition")
		return false
	}
	m.committed = g
	m.state = state
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.lock.Unlock()

	if m.metrics != nil {
		if state.IsAuthenticated {
			m.metrics.Authenticated.Set(1)
		} else {
			m.metrics.Authenticated.Set(0)
		}
	}
	for _, sub := range subs {
		sub.fn(state)
	}
	return true
}
