package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ctchen222/Finger-Auth/internal/api/models"
	"ctchen222/Finger-Auth/internal/api/repository"
	"ctchen222/Finger-Auth/internal/events"
	"ctchen222/Finger-Auth/internal/session"
	"ctchen222/Finger-Auth/internal/validator"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("service")

// UserService drives the credential and challenge-completion steps of the
// authentication flow for one session at a time.
type UserService interface {
	Register(ctx context.Context, sid string, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, sid string, req *models.LoginRequest) (*models.User, error)
	CompleteChallenge(ctx context.Context, sid string, passed bool) (*session.Authenticated, error)
	Cancel(ctx context.Context, sid string) error
	Logout(ctx context.Context, sid string) error
	CurrentUser(ctx context.Context, sid string) (*models.User, error)
	Session(ctx context.Context, sid string) (session.State, error)
}

type userService struct {
	userRepo        repository.UserRepository
	sessions        session.Store
	publisher       events.Publisher
	requireVerified bool
	now             func() time.Time
}

// UserServiceOption customizes a UserService.
type UserServiceOption func(*userService)

// WithRequireVerifiedChallenge makes CompleteChallenge ignore a client's
// claim of success unless a frame for the current target matched on the
// server.
func WithRequireVerifiedChallenge(require bool) UserServiceOption {
	return func(s *userService) { s.requireVerified = require }
}

// WithPublisher sets where auth events go.
func WithPublisher(p events.Publisher) UserServiceOption {
	return func(s *userService) { s.publisher = p }
}

// WithNow replaces time.Now.
func WithNow(now func() time.Time) UserServiceOption {
	return func(s *userService) { s.now = now }
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, sessions session.Store, opts ...UserServiceOption) UserService {
	s := &userService{
		userRepo:        userRepo,
		sessions:        sessions,
		publisher:       events.Discard{},
		requireVerified: true,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register handles user registration. On success the session is left
// pending a challenge.
func (s *userService) Register(ctx context.Context, sid string, req *models.RegisterRequest) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	clean := models.RegisterRequest{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}
	if err := validator.GetValidator().Struct(clean); err != nil {
		return nil, validationError(err, "All fields are required")
	}

	// Check if user already exists
	existing, err := s.userRepo.GetUserByUsername(ctx, clean.Username)
	if err != nil {
		return nil, s.fail(span, err, "Failed to look up username")
	}
	if existing != nil {
		return nil, newError(ErrValidation, repository.ErrUsernameTaken.Error())
	}
	existing, err = s.userRepo.GetUserByEmail(ctx, clean.Email)
	if err != nil {
		return nil, s.fail(span, err, "Failed to look up email")
	}
	if existing != nil {
		return nil, newError(ErrValidation, repository.ErrEmailTaken.Error())
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: clean.Username,
		Email:    clean.Email,
		JoinDate: models.FormatJoinDate(s.now()),
	}
	if err := s.userRepo.CreateUser(ctx, user, clean.Password); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrUsernameTaken) || errors.Is(err, repository.ErrEmailTaken) {
			return nil, newError(ErrValidation, err.Error())
		}
		return nil, s.fail(span, err, "Failed to create user")
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if err := s.beginPending(ctx, sid, user, session.ActionRegister); err != nil {
		// Without a pending auth the account could never be confirmed, and a
		// retry would hit the duplicate check.
		if delErr := s.userRepo.DeleteUser(ctx, user.ID); delErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back unconfirmed user", "user.id", user.ID, "error", delErr)
		}
		return nil, s.fail(span, err, "Failed to store pending auth")
	}

	slog.InfoContext(ctx, "User registered, challenge pending", "user.id", user.ID, "user.name", user.Username)
	return user, nil
}

// Login checks credentials. On success the session is left pending a
// challenge; login_count moves only once the challenge is completed.
func (s *userService) Login(ctx context.Context, sid string, req *models.LoginRequest) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Login")
	defer span.End()

	clean := models.LoginRequest{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	}
	if err := validator.GetValidator().Struct(clean); err != nil {
		return nil, validationError(err, "Username and password required")
	}

	user, err := s.userRepo.GetUserByUsername(ctx, clean.Username)
	if err != nil {
		return nil, s.fail(span, err, "Failed to look up user")
	}
	if user == nil {
		return nil, newError(ErrCredentials, "Invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(clean.Password)); err != nil {
		slog.InfoContext(ctx, "Rejected login", "user.id", user.ID)
		return nil, newError(ErrCredentials, "Invalid username or password")
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if err := s.beginPending(ctx, sid, user, session.ActionLogin); err != nil {
		return nil, s.fail(span, err, "Failed to store pending auth")
	}

	slog.InfoContext(ctx, "Credentials accepted, challenge pending", "user.id", user.ID)
	return user, nil
}

func (s *userService) beginPending(ctx context.Context, sid string, user *models.User, action session.Action) error {
	p := session.PendingAuth{
		UserID:    user.ID,
		Username:  user.Username,
		Action:    action,
		CreatedAt: s.now(),
	}
	if _, err := s.sessions.Update(ctx, sid, func(st *session.State) error {
		st.BeginPending(p)
		return nil
	}); err != nil {
		return err
	}
	s.publish(ctx, events.AuthPending, p.UserID, p.Username, string(action))
	return nil
}

// CompleteChallenge promotes the session's pending authentication. The
// user's counters move exactly once per promotion.
func (s *userService) CompleteChallenge(ctx context.Context, sid string, passed bool) (*session.Authenticated, error) {
	ctx, span := tracer.Start(ctx, "UserService.CompleteChallenge", trace.WithAttributes(
		attribute.Bool("challenge.claimed", passed),
	))
	defer span.End()

	st, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, s.fail(span, err, "Failed to load session")
	}
	if !st.IsPending() {
		return nil, session.ErrNoPendingAuth
	}
	if !s.effectivePass(st, passed) {
		return nil, session.ErrChallengeNotPassed
	}

	pendingID := st.Pending.UserID
	user, err := s.userRepo.GetUserByID(ctx, pendingID)
	if err != nil {
		return nil, s.fail(span, err, "Failed to look up user")
	}
	if user == nil {
		s.dropStaleSession(ctx, sid, func(st *session.State) { st.Cancel() })
		return nil, newError(ErrUserNotFound, "User not found")
	}

	var (
		promoted session.PendingAuth
		before   session.State
	)
	st, err = s.sessions.Update(ctx, sid, func(st *session.State) error {
		if st.IsPending() && st.Pending.UserID != pendingID {
			return session.ErrConflict
		}
		before = *st
		p, err := st.CompleteChallenge(s.effectivePass(*st, passed), s.now())
		if err != nil {
			return err
		}
		promoted = p
		return nil
	})
	if err != nil {
		if !errors.Is(err, session.ErrNoPendingAuth) && !errors.Is(err, session.ErrChallengeNotPassed) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to promote session")
		}
		return nil, err
	}

	err = s.userRepo.RecordChallengeCompletion(ctx, promoted.UserID, promoted.Action == session.ActionLogin)
	if errors.Is(err, repository.ErrNotFound) {
		s.dropStaleSession(ctx, sid, func(st *session.State) { st.Logout() })
		return nil, newError(ErrUserNotFound, "User not found")
	}
	if err != nil {
		s.revertPromotion(ctx, sid, before)
		return nil, s.fail(span, err, "Failed to record challenge completion")
	}

	slog.InfoContext(ctx, "Challenge completed, session authenticated",
		"user.id", promoted.UserID, "auth.action", string(promoted.Action))
	s.publish(ctx, events.AuthCompleted, promoted.UserID, promoted.Username, string(promoted.Action))
	return st.Auth, nil
}

// revertPromotion puts back the pending auth a failed completion promoted,
// unless the session has moved on since.
func (s *userService) revertPromotion(ctx context.Context, sid string, before session.State) {
	_, err := s.sessions.Update(ctx, sid, func(st *session.State) error {
		if st.IsPending() || !st.IsAuthenticated() || st.Auth.UserID != before.Pending.UserID {
			return nil
		}
		*st = before
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to restore pending auth", "user.id", before.Pending.UserID, "error", err)
	}
}

func (s *userService) effectivePass(st session.State, claimed bool) bool {
	if !claimed {
		return false
	}
	return st.ChallengeVerified || !s.requireVerified
}

func (s *userService) dropStaleSession(ctx context.Context, sid string, clear func(*session.State)) {
	if _, err := s.sessions.Update(ctx, sid, func(st *session.State) error {
		clear(st)
		return nil
	}); err != nil {
		slog.ErrorContext(ctx, "Failed to clear stale session", "error", err)
	}
	slog.WarnContext(ctx, "Session referenced a missing user, cleared")
}

// Cancel abandons a pending authentication. Cancelling with nothing pending
// is not an error.
func (s *userService) Cancel(ctx context.Context, sid string) error {
	ctx, span := tracer.Start(ctx, "UserService.Cancel")
	defer span.End()

	var cancelled *session.PendingAuth
	if _, err := s.sessions.Update(ctx, sid, func(st *session.State) error {
		cancelled = st.Pending
		st.Cancel()
		return nil
	}); err != nil {
		return s.fail(span, err, "Failed to cancel pending auth")
	}

	if cancelled != nil {
		slog.InfoContext(ctx, "Pending auth cancelled", "user.id", cancelled.UserID)
		s.publish(ctx, events.AuthCancelled, cancelled.UserID, cancelled.Username, string(cancelled.Action))
	}
	return nil
}

// Logout clears all auth state of the session.
func (s *userService) Logout(ctx context.Context, sid string) error {
	ctx, span := tracer.Start(ctx, "UserService.Logout")
	defer span.End()

	var auth *session.Authenticated
	if _, err := s.sessions.Update(ctx, sid, func(st *session.State) error {
		auth = st.Auth
		st.Logout()
		return nil
	}); err != nil {
		return s.fail(span, err, "Failed to clear session")
	}

	if auth != nil {
		slog.InfoContext(ctx, "User logged out", "user.id", auth.UserID)
		s.publish(ctx, events.AuthLogout, auth.UserID, auth.Username, "")
	}
	return nil
}

// CurrentUser returns the authenticated user of the session. A session that
// points at a deleted user is cleared.
func (s *userService) CurrentUser(ctx context.Context, sid string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.CurrentUser")
	defer span.End()

	st, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, s.fail(span, err, "Failed to load session")
	}
	if !st.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	user, err := s.userRepo.GetUserByID(ctx, st.Auth.UserID)
	if err != nil {
		return nil, s.fail(span, err, "Failed to look up user")
	}
	if user == nil {
		s.dropStaleSession(ctx, sid, func(st *session.State) { st.Logout() })
		return nil, newError(ErrUserNotFound, "User not found")
	}
	return user, nil
}

func (s *userService) Session(ctx context.Context, sid string) (session.State, error) {
	return s.sessions.Get(ctx, sid)
}

func (s *userService) publish(ctx context.Context, eventType, userID, username, action string) {
	err := s.publisher.Publish(ctx, eventType, events.AuthPayload{
		UserID:   userID,
		Username: username,
		Action:   action,
		At:       s.now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish auth event", "event.type", eventType, "error", err)
	}
}

func (s *userService) fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return fmt.Errorf("%s: %w", strings.ToLower(msg[:1])+msg[1:], err)
}

// validationError turns validator output into a client message. Blank fields
// report blankMsg; anything else names the offending field.
func validationError(err error, blankMsg string) error {
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return newError(ErrValidation, blankMsg)
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "notblank" {
			return newError(ErrValidation, blankMsg)
		}
	}
	return newError(ErrValidation, fmt.Sprintf("%s is too long", fieldErrs[0].Field()))
}
