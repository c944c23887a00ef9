package service

import (
	"context"
	"fmt"
	"log/slog"

	"ctchen222/Finger-Auth/internal/challenge"
	"ctchen222/Finger-Auth/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ChallengeService issues finger-count targets to sessions and checks frames
// against them.
type ChallengeService interface {
	Generate(ctx context.Context, sid string) (challenge.State, error)
	Evaluate(ctx context.Context, sid string, image string) (challenge.Result, error)
}

type challengeService struct {
	engine   *challenge.Engine
	sessions session.Store
}

// NewChallengeService creates a new ChallengeService.
func NewChallengeService(engine *challenge.Engine, sessions session.Store) ChallengeService {
	return &challengeService{engine: engine, sessions: sessions}
}

// Generate draws a target and stores it on the session, replacing any
// earlier one.
func (s *challengeService) Generate(ctx context.Context, sid string) (challenge.State, error) {
	ctx, span := tracer.Start(ctx, "ChallengeService.Generate")
	defer span.End()

	c := s.engine.Generate(ctx)
	if _, err := s.sessions.Update(ctx, sid, func(st *session.State) error {
		st.SetChallenge(c)
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store challenge")
		return challenge.State{}, fmt.Errorf("failed to store challenge: %w", err)
	}
	return c, nil
}

// Evaluate checks one frame against the session's target. A target drawn by
// the engine is kept on the session, and a match marks the session verified
// for that target.
func (s *challengeService) Evaluate(ctx context.Context, sid string, image string) (challenge.Result, error) {
	ctx, span := tracer.Start(ctx, "ChallengeService.Evaluate")
	defer span.End()

	st, err := s.sessions.Get(ctx, sid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load session")
		return challenge.Result{}, fmt.Errorf("failed to load session: %w", err)
	}

	res := s.engine.Evaluate(ctx, st.Challenge, image)
	span.SetAttributes(attribute.String("challenge.outcome", string(res.Outcome)))

	if res.Drawn == nil && !res.Success {
		return res, nil
	}

	evaluated := st.Challenge
	if res.Drawn != nil {
		evaluated = res.Drawn
	}
	_, err = s.sessions.Update(ctx, sid, func(cur *session.State) error {
		if res.Drawn != nil && cur.Challenge == nil {
			cur.SetChallenge(*res.Drawn)
		}
		// A target replaced while the frame was being checked stays unverified.
		if res.Success && cur.Challenge != nil && cur.Challenge.Same(*evaluated) {
			cur.MarkVerified()
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store challenge result")
		return challenge.Result{}, fmt.Errorf("failed to store challenge result: %w", err)
	}

	if res.Success {
		slog.InfoContext(ctx, "Challenge frame matched", "challenge.target", res.TargetNumber)
	}
	return res, nil
}
