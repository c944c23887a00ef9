package models

import "time"

// JoinDateLayout is the storage format of User.JoinDate.
const JoinDateLayout = "2006-01-02 15:04:05"

// User represents a user in the database.
type User struct {
	ID                  string `db:"id" json:"id"`
	Username            string `db:"username" json:"username"`
	Email               string `db:"email" json:"email"`
	PasswordHash        string `db:"password_hash" json:"-"`
	JoinDate            string `db:"join_date" json:"join_date"`
	LoginCount          int64  `db:"login_count" json:"login_count"`
	ChallengesCompleted int64  `db:"challenges_completed" json:"challenges_completed"`
}

// FormatJoinDate renders t in the stored join date format.
func FormatJoinDate(t time.Time) string {
	return t.Format(JoinDateLayout)
}

// RegisterRequest defines the structure for a user registration request.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"notblank,max=64"`
	Email    string `json:"email" form:"email" validate:"notblank,max=254"`
	Password string `json:"password" form:"password" validate:"notblank,max=72"`
}

// LoginRequest defines the structure for a user login request.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"notblank"`
	Password string `json:"password" form:"password" validate:"notblank"`
}

// FingerChallengeRequest carries one camera frame.
type FingerChallengeRequest struct {
	Image string `json:"image" binding:"required"`
}

// CompleteChallengeRequest is the client's claim that the challenge passed.
type CompleteChallengeRequest struct {
	ChallengePassed bool `json:"challenge_passed"`
}

// GenerateChallengeResponse returns a freshly issued target.
type GenerateChallengeResponse struct {
	TargetNumber int `json:"target_number"`
}

// CompleteChallengeResponse is returned after a successful promotion.
type CompleteChallengeResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

// DashboardResponse is the authenticated user's view.
type DashboardResponse struct {
	Success bool  `json:"success"`
	User    *User `json:"user"`
}
