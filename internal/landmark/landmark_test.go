package landmark_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ctchen222/Finger-Auth/internal/fingers"
	"ctchen222/Finger-Auth/internal/fingers/fingerstest"
	"ctchen222/Finger-Auth/internal/landmark"
	"ctchen222/Finger-Auth/internal/landmark/landmarktest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantFormat string
		wantErr    error
	}{
		{name: "PNG data uri", input: landmarktest.PNGDataURI(8, 6), wantFormat: "png"},
		{name: "JPEG data uri", input: landmarktest.JPEGDataURI(16, 16), wantFormat: "jpeg"},
		{name: "Bare base64", input: strings.TrimPrefix(landmarktest.PNGDataURI(4, 4), "data:image/png;base64,"), wantFormat: "png"},
		{name: "Empty", input: "", wantErr: landmark.ErrEmptyImage},
		{name: "Empty payload", input: "data:image/png;base64,", wantErr: landmark.ErrEmptyImage},
		{name: "Missing comma", input: "data:image/png;base64", wantErr: landmark.ErrBadEncoding},
		{name: "Not base64 uri", input: "data:text/plain,hello", wantErr: landmark.ErrBadEncoding},
		{name: "Garbage", input: "data:image/png;base64,!!!not-base64!!!", wantErr: landmark.ErrBadEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := landmark.DecodeDataURI(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.NotNil(t, img)
		})
	}
}

func TestDecodeDataURI_NotAnImage(t *testing.T) {
	_, _, err := landmark.DecodeDataURI("data:image/png;base64,aGVsbG8gd29ybGQ=")
	require.Error(t, err)
}

func TestDecodeDataURI_RejectsHugeDimensions(t *testing.T) {
	_, _, err := landmark.DecodeDataURI(landmarktest.PNGDataURI(landmark.MaxImageSide+1, 1))
	require.ErrorIs(t, err, landmark.ErrImageTooLarge)
}

func newSidecar(t *testing.T, handler http.HandlerFunc) *landmark.RemoteDetector {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return landmark.NewRemoteDetector(srv.URL, landmark.DefaultConfig(), srv.Client())
}

func TestRemoteDetector_ReturnsFirstHand(t *testing.T) {
	hand := fingerstest.HandWithCount(3)

	d := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/hands", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("max_num_hands"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))

		resp := map[string]any{
			"hands": []map[string]any{
				{"landmarks": hand[:], "handedness": "Right", "score": 0.98},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	got, found, err := d.Detect(context.Background(), landmarktest.Frame(4, 4))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, hand, got)
	assert.Equal(t, 3, fingers.Count(got))
}

func TestRemoteDetector_NoHand(t *testing.T) {
	d := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hands":[]}`))
	})

	_, found, err := d.Detect(context.Background(), landmarktest.Frame(4, 4))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemoteDetector_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "Malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"hands":`))
			},
		},
		{
			name: "Wrong landmark count",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"hands":[{"landmarks":[{"x":0.1,"y":0.2}]}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newSidecar(t, tt.handler)
			_, found, err := d.Detect(context.Background(), landmarktest.Frame(4, 4))
			require.Error(t, err)
			assert.False(t, found)
		})
	}
}
