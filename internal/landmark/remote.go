package landmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ctchen222/Finger-Auth/internal/fingers"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("landmark")

const handsPath = "/v1/hands"

// RemoteDetector calls a hand-pose estimation sidecar over HTTP. The sidecar
// receives a PNG frame and answers with normalized keypoints per hand.
type RemoteDetector struct {
	baseURL string
	cfg     Config
	client  *http.Client
}

var _ Detector = (*RemoteDetector)(nil)

// NewRemoteDetector creates a detector for the sidecar at baseURL. A nil
// client gets an instrumented default.
func NewRemoteDetector(baseURL string, cfg Config, client *http.Client) *RemoteDetector {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &RemoteDetector{
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		client:  client,
	}
}

type handsResponse struct {
	Hands []struct {
		Landmarks  []fingers.Point `json:"landmarks"`
		Handedness string          `json:"handedness"`
		Score      float64         `json:"score"`
	} `json:"hands"`
}

// Detect encodes img, posts it to the sidecar and returns the first hand.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) (fingers.HandLandmarks, bool, error) {
	ctx, span := tracer.Start(ctx, "RemoteDetector.Detect", trace.WithAttributes(
		attribute.Int("image.width", img.Bounds().Dx()),
		attribute.Int("image.height", img.Bounds().Dy()),
	))
	defer span.End()

	var hand fingers.HandLandmarks

	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode frame")
		return hand, false, fmt.Errorf("failed to encode frame: %w", err)
	}

	q := url.Values{}
	q.Set("max_num_hands", strconv.Itoa(d.cfg.MaxHands))
	q.Set("min_detection_confidence", strconv.FormatFloat(d.cfg.MinConfidence, 'f', -1, 64))
	q.Set("min_tracking_confidence", strconv.FormatFloat(d.cfg.MinTrackingConf, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+handsPath+"?"+q.Encode(), &body)
	if err != nil {
		return hand, false, fmt.Errorf("failed to build detector request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := d.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Detector request failed")
		return hand, false, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("detector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Detector returned non-200")
		return hand, false, err
	}

	var out handsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode detector response")
		return hand, false, fmt.Errorf("failed to decode detector response: %w", err)
	}

	span.SetAttributes(attribute.Int("hands.count", len(out.Hands)))
	if len(out.Hands) == 0 {
		return hand, false, nil
	}

	first := out.Hands[0]
	if len(first.Landmarks) != fingers.LandmarkCount {
		err := fmt.Errorf("detector returned %d landmarks, want %d", len(first.Landmarks), fingers.LandmarkCount)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unexpected landmark count")
		return hand, false, err
	}
	copy(hand[:], first.Landmarks)
	return hand, true, nil
}
