// Package challenge issues finger-count targets and checks camera frames
// against them.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"ctchen222/Finger-Auth/internal/fingers"
	"ctchen222/Finger-Auth/internal/landmark"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("challenge")
	meter  = otel.Meter("challenge")
)

// Target bounds, inclusive.
const (
	MinTarget = 1
	MaxTarget = 5
)

const (
	defaultDetectTimeout = 5 * time.Second
	defaultTTL           = 30 * time.Second
)

// Outcome classifies an evaluation for callers and metrics.
type Outcome string

const (
	OutcomeMatched         Outcome = "matched"
	OutcomeMismatch        Outcome = "mismatch"
	OutcomeNoHand          Outcome = "no_hand"
	OutcomeDetectionFailed Outcome = "detection_failed"
	OutcomeNoTarget        Outcome = "no_target"
	OutcomeExpired         Outcome = "expired"
)

// State is the target issued to one session.
type State struct {
	Target   int       `json:"target"`
	IssuedAt time.Time `json:"issued_at"`
}

// Expired reports whether the target is older than ttl. A zero ttl never expires.
func (s State) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.IssuedAt) > ttl
}

// Same reports whether s and o are the same issued target.
func (s State) Same(o State) bool {
	return s.Target == o.Target && s.IssuedAt.Equal(o.IssuedAt)
}

// Result is the answer to a single frame submission.
type Result struct {
	Success         bool   `json:"success"`
	TargetNumber    int    `json:"target_number"`
	DetectedFingers int    `json:"detected_fingers"`
	Message         string `json:"message"`

	Outcome Outcome `json:"-"`
	// Drawn is set when no target existed and the engine picked one.
	Drawn *State `json:"-"`
}

// Engine generates targets and evaluates frames with a landmark detector.
type Engine struct {
	detector      landmark.Detector
	detectTimeout time.Duration
	ttl           time.Duration
	requireTarget bool
	intN          func(n int) int
	now           func() time.Time

	generated   metric.Int64Counter
	evaluations metric.Int64Counter
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDetectTimeout bounds a single detector call.
func WithDetectTimeout(d time.Duration) Option {
	return func(e *Engine) { e.detectTimeout = d }
}

// WithTTL sets how long an issued target stays valid. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(e *Engine) { e.ttl = d }
}

// WithRequireTarget makes Evaluate fail when no target was generated instead
// of drawing one.
func WithRequireTarget(require bool) Option {
	return func(e *Engine) { e.requireTarget = require }
}

// WithRand replaces the random source; intN must return a value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(e *Engine) { e.intN = intN }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine backed by detector.
func NewEngine(detector landmark.Detector, opts ...Option) *Engine {
	e := &Engine{
		detector:      detector,
		detectTimeout: defaultDetectTimeout,
		ttl:           defaultTTL,
		intN:          rand.IntN,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.generated, err = meter.Int64Counter("challenge.generated",
		metric.WithDescription("Finger challenge targets issued"))
	if err != nil {
		slog.Warn("failed to create challenge.generated counter", "error", err)
		e.generated = noop.Int64Counter{}
	}
	e.evaluations, err = meter.Int64Counter("challenge.evaluations",
		metric.WithDescription("Finger challenge frames evaluated, by outcome"))
	if err != nil {
		slog.Warn("failed to create challenge.evaluations counter", "error", err)
		e.evaluations = noop.Int64Counter{}
	}
	return e
}

// Generate draws a fresh target uniformly from [MinTarget, MaxTarget].
func (e *Engine) Generate(ctx context.Context) State {
	st := State{
		Target:   MinTarget + e.intN(MaxTarget-MinTarget+1),
		IssuedAt: e.now(),
	}
	e.generated.Add(ctx, 1)
	return st
}

// Evaluate checks a frame against the session target. Every failure is
// reported inside the Result; Evaluate never returns an error.
func (e *Engine) Evaluate(ctx context.Context, current *State, image string) Result {
	ctx, span := tracer.Start(ctx, "Engine.Evaluate")
	defer span.End()

	res := e.evaluate(ctx, current, image)

	span.SetAttributes(
		attribute.String("challenge.outcome", string(res.Outcome)),
		attribute.Int("challenge.target", res.TargetNumber),
		attribute.Int("challenge.detected", res.DetectedFingers),
	)
	e.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(res.Outcome))))
	return res
}

func (e *Engine) evaluate(ctx context.Context, current *State, image string) Result {
	var drawn *State
	if current == nil {
		if e.requireTarget {
			return Result{
				Outcome: OutcomeNoTarget,
				Message: "No challenge in progress. Request a new target first.",
			}
		}
		st := e.Generate(ctx)
		drawn = &st
		current = drawn
		slog.DebugContext(ctx, "no target on session, drew a fresh one", "challenge.target", st.Target)
	}

	res := Result{TargetNumber: current.Target, Drawn: drawn}

	if current.Expired(e.now(), e.ttl) {
		res.Outcome = OutcomeExpired
		res.Message = "Challenge expired. Request a new target."
		return res
	}

	img, _, err := landmark.DecodeDataURI(image)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		res.Outcome = OutcomeDetectionFailed
		res.Message = fmt.Sprintf("Error processing image: %v", err)
		return res
	}

	detectCtx, cancel := context.WithTimeout(ctx, e.detectTimeout)
	defer cancel()

	hand, found, err := e.detector.Detect(detectCtx, img)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hand detection failed")
		slog.WarnContext(ctx, "hand detection failed", "error", err)
		res.Outcome = OutcomeDetectionFailed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(detectCtx.Err(), context.DeadlineExceeded) {
			res.Message = "Hand detection timed out. Please try again."
		} else {
			res.Message = fmt.Sprintf("Error processing image: %v", err)
		}
		return res
	}

	if !found {
		res.Outcome = OutcomeNoHand
		res.Message = "No hand detected in image."
		return res
	}

	res.DetectedFingers = fingers.Count(hand)
	res.Success = res.DetectedFingers == res.TargetNumber
	res.Outcome = OutcomeMismatch
	if res.Success {
		res.Outcome = OutcomeMatched
	}
	res.Message = fmt.Sprintf("Detected %d fingers. Target was %d.", res.DetectedFingers, res.TargetNumber)
	return res
}
