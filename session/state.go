package session

import (
	"github.com/worldpet/go-auth-client/users"
)

// State is the authoritative session state machine value.
//
// Invariants: IsAuthenticated == (User != nil), and IsLoading is true only
// during the startup resolution window or an in-flight login, register or
// logout call — never alongside a stale user. User is replaced wholesale on
// every transition; partial merges are not permitted.
type State struct {
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
}

func anonymous() State {
	return State{}
}

func loading() State {
	return State{IsLoading: true}
}

func authenticated(user *users.User) State {
	return State{User: user, IsAuthenticated: true}
}
