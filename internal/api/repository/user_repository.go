package repository

//go:generate mockgen -source=user_repository.go -destination=mock_user_repository.go -package=repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ctchen222/Finger-Auth/internal/api/models"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("repository")

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already registered")
	ErrNotFound      = errors.New("user not found")
)

// UserRepository defines the interface for user data operations. Lookups
// return a nil user and a nil error when nothing matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	// DeleteUser removes a user. Deleting a missing user is not an error.
	DeleteUser(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// RecordChallengeCompletion bumps challenges_completed and, when login is
	// true, login_count in one statement. It returns ErrNotFound if the user
	// no longer exists.
	RecordChallengeCompletion(ctx context.Context, id string, login bool) error
	CountUsers(ctx context.Context) (int, error)
}

type sqliteUserRepository struct {
	db *sqlx.DB
	// mu serializes writers so the uniqueness check and the insert see the
	// same snapshot.
	mu sync.Mutex
}

// NewUserRepository creates a new SQLite-based UserRepository.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, join_date, login_count, challenges_completed`

// CreateUser hashes the password and inserts a new user into the database.
// user.PasswordHash is filled in on success.
func (r *sqliteUserRepository) CreateUser(ctx context.Context, user *models.User, password string) error {
	ctx, span := tracer.Start(ctx, "UserRepository.CreateUser", trace.WithAttributes(
		attribute.String("user.id", user.ID),
	))
	defer span.End()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to hash password")
		return fmt.Errorf("failed to hash password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if taken, err := exists(ctx, tx, "username", user.Username); err != nil {
		return err
	} else if taken {
		return ErrUsernameTaken
	}
	if taken, err := exists(ctx, tx, "email", user.Email); err != nil {
		return err
	} else if taken {
		return ErrEmailTaken
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, string(hashedPassword),
		user.JoinDate, user.LoginCount, user.ChallengesCompleted,
	)
	if err != nil {
		if mapped := uniqueViolation(err); mapped != nil {
			return mapped
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to commit user")
		return fmt.Errorf("failed to commit user: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	return nil
}

func (r *sqliteUserRepository) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "UserRepository.DeleteUser", trace.WithAttributes(
		attribute.String("user.id", id),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete user")
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func exists(ctx context.Context, tx *sqlx.Tx, column, value string) (bool, error) {
	var n int
	// column is one of a fixed set chosen by the caller.
	query := `SELECT COUNT(*) FROM users WHERE ` + column + ` = ?`
	if err := tx.GetContext(ctx, &n, query, value); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", column, err)
	}
	return n > 0, nil
}

func uniqueViolation(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
		return ErrUsernameTaken
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return ErrEmailTaken
	}
	return nil
}

func (r *sqliteUserRepository) getBy(ctx context.Context, spanName, column, value string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	err := r.db.GetContext(ctx, &user, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No user found is not an application error
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get user")
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	return &user, nil
}

// GetUserByID retrieves a user by id.
func (r *sqliteUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "UserRepository.GetUserByID", "id", id)
}

// GetUserByUsername retrieves a user from the database by their username.
func (r *sqliteUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "UserRepository.GetUserByUsername", "username", username)
}

// GetUserByEmail retrieves a user by email address.
func (r *sqliteUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "UserRepository.GetUserByEmail", "email", email)
}

func (r *sqliteUserRepository) RecordChallengeCompletion(ctx context.Context, id string, login bool) error {
	ctx, span := tracer.Start(ctx, "UserRepository.RecordChallengeCompletion", trace.WithAttributes(
		attribute.String("user.id", id),
		attribute.Bool("auth.login", login),
	))
	defer span.End()

	query := `UPDATE users SET challenges_completed = challenges_completed + 1 WHERE id = ?`
	if login {
		query = `UPDATE users SET challenges_completed = challenges_completed + 1, login_count = login_count + 1 WHERE id = ?`
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update counters")
		return fmt.Errorf("failed to update counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteUserRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
