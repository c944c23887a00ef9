package session

import (
	"errors"
	"time"

	"ctchen222/Finger-Auth/internal/challenge"
)

var (
	ErrNoPendingAuth      = errors.New("no pending authentication found")
	ErrChallengeNotPassed = errors.New("challenge not passed")
)

// Action is the credential step that opened a pending authentication.
type Action string

const (
	ActionRegister Action = "register"
	ActionLogin    Action = "login"
)

// PendingAuth marks a session whose credentials were accepted but whose
// finger challenge is still outstanding.
type PendingAuth struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Authenticated is set once the challenge has been completed.
type Authenticated struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// State is everything the server keeps for one browser session. At most one
// of Pending and Auth is set.
type State struct {
	Pending           *PendingAuth     `json:"pending_auth,omitempty"`
	Auth              *Authenticated   `json:"auth,omitempty"`
	Challenge         *challenge.State `json:"challenge,omitempty"`
	ChallengeVerified bool             `json:"challenge_verified,omitempty"`
}

// IsZero reports whether the state carries nothing worth storing.
func (s State) IsZero() bool {
	return s.Pending == nil && s.Auth == nil && s.Challenge == nil && !s.ChallengeVerified
}

// IsPending reports whether a credential step awaits its challenge.
func (s State) IsPending() bool { return s.Pending != nil }

// IsAuthenticated reports whether the session passed both steps.
func (s State) IsAuthenticated() bool { return s.Auth != nil }

// BeginPending records a successful credential step. Any previous
// authentication and challenge progress is discarded.
func (s *State) BeginPending(p PendingAuth) {
	s.Pending = &p
	s.Auth = nil
	s.Challenge = nil
	s.ChallengeVerified = false
}

// SetChallenge replaces the current target and resets verification.
func (s *State) SetChallenge(c challenge.State) {
	s.Challenge = &c
	s.ChallengeVerified = false
}

// MarkVerified records that a frame matched the current target.
func (s *State) MarkVerified() {
	s.ChallengeVerified = true
}

// CompleteChallenge promotes a pending authentication. It fails with
// ErrNoPendingAuth when nothing is pending and with ErrChallengeNotPassed,
// leaving the state untouched, when passed is false.
func (s *State) CompleteChallenge(passed bool, now time.Time) (PendingAuth, error) {
	if s.Pending == nil {
		return PendingAuth{}, ErrNoPendingAuth
	}
	if !passed {
		return PendingAuth{}, ErrChallengeNotPassed
	}

	p := *s.Pending
	s.Auth = &Authenticated{
		UserID:          p.UserID,
		Username:        p.Username,
		AuthenticatedAt: now,
	}
	s.Pending = nil
	s.Challenge = nil
	s.ChallengeVerified = false
	return p, nil
}

// Cancel abandons a pending authentication. It is a no-op when nothing is
// pending and never touches an existing authentication.
func (s *State) Cancel() {
	s.Pending = nil
	s.Challenge = nil
	s.ChallengeVerified = false
}

// Logout clears the whole state.
func (s *State) Logout() {
	*s = State{}
}
