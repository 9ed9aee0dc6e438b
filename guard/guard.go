package guard

import (
	"github.com/worldpet/go-auth-client/internal/metrics"
	"github.com/worldpet/go-auth-client/session"
	"github.com/worldpet/go-auth-client/users"
)

// Decision is the outcome for a requested protected view.
type Decision int

const (
	ShowLoadingPlaceholder Decision = iota
	RedirectToLogin
	Render
	Forbidden // role-gated views only
)

func (d Decision) String() string {
	switch d {
	case ShowLoadingPlaceholder:
		return "show_loading_placeholder"
	case RedirectToLogin:
		return "redirect_to_login"
	case Render:
		return "render"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Evaluate applies the gating rule in strict order: loading wins over
// everything else, so a consumer can never observe a redirect-to-login flash
// while startup resolution is still in flight.
func Evaluate(state session.State) Decision {
	if state.IsLoading {
		return ShowLoadingPlaceholder
	}
	if !state.IsAuthenticated {
		return RedirectToLogin
	}
	return Render
}

// EvaluateRole gates a view that additionally requires one of the given
// roles. The loading and authentication checks still run first, in order.
func EvaluateRole(state session.State, roles ...users.RoleType) Decision {
	decision := Evaluate(state)
	if decision != Render || len(roles) == 0 {
		return decision
	}
	// A state claiming authentication without a user carries no role.
	if state.User == nil || !state.User.HasRole(roles...) {
		return Forbidden
	}
	return Render
}

// WatchOption defines a function type to modify a Watch subscription.
type WatchOption func(*watcher)

// WithMetrics counts decisions on Prometheus collectors.
func WithMetrics(m *metrics.Metrics) WatchOption {
	return func(w *watcher) {
		w.metrics = m
	}
}

// WithRoles makes the watcher evaluate the role-gated rule.
func WithRoles(roles ...users.RoleType) WatchOption {
	return func(w *watcher) {
		w.roles = roles
	}
}

type watcher struct {
	metrics *metrics.Metrics
	roles   []users.RoleType
}

// Watch subscribes to the session manager and pushes a fresh decision to fn
// after every state transition, starting with the current state. The returned
// cancel function detaches the watcher.
func Watch(manager *session.Manager, fn func(Decision), options ...WatchOption) (cancel func()) {
	w := &watcher{}
	for _, opt := range options {
		opt(w)
	}

	notify := func(state session.State) {
		decision := EvaluateRole(state, w.roles...)
		if w.metrics != nil {
			w.metrics.GuardDecisions.WithLabelValues(decision.String()).Inc()
		}
		fn(decision)
	}

	cancel = manager.Subscribe(notify)
	notify(manager.State())
	return cancel
}
