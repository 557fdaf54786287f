package synth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWAV = "RIFF....WAVE"

func TestHTTPClient_GenerateSpeech_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, apiGenerateSpeech, r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))
		assert.Equal(t, contentTypeWAV, r.Header.Get(headerAccept))

		var req SpeechRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "你好", req.Text)
		assert.Equal(t, "/voice/joy.wav", req.SpeakerRefPath)
		assert.InDelta(t, defaultEmotionWeight, req.EmotionWeight, 1e-9)

		w.Header().Set(headerContentType, contentTypeWAV)
		_, _ = w.Write([]byte(testWAV))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL+"/", time.Second)
	audio, err := c.GenerateSpeech(context.Background(), SpeechRequest{
		Text: "你好", SpeakerRefPath: "/voice/joy.wav", EmotionRefPath: "/voice/joy.wav",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(audio), "RIFF"))
}

func TestHTTPClient_GenerateSpeech_EmptyText(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", time.Second)
	_, err := c.GenerateSpeech(context.Background(), SpeechRequest{Text: "   "})
	assert.ErrorIs(t, err, ErrTextEmpty)
}

func TestHTTPClient_GenerateSpeech_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "structured error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerContentType, contentTypeJSON)
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"Invalid speaker reference path","error_code":"INVALID_SPEAKER_PATH"}`))
			},
			want: "INVALID_SPEAKER_PATH",
		},
		{
			name: "plain error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("cuda out of memory"))
			},
			want: "cuda out of memory",
		},
		{
			name: "wrong content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerContentType, "text/html")
				_, _ = w.Write([]byte("<html>"))
			},
			want: "text/html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewHTTPClient(server.URL, time.Second).GenerateSpeech(context.Background(), SpeechRequest{Text: "hi"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnexpectedResponse)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHTTPClient_GenerateSpeech_EmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, contentTypeWAV)
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, time.Second).GenerateSpeech(context.Background(), SpeechRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestHTTPClient_GenerateSpeech_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, 50*time.Millisecond).GenerateSpeech(context.Background(), SpeechRequest{Text: "hi"})
	require.Error(t, err)
}

func TestHTTPClient_GenerateSpeech_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(server.URL, time.Second).GenerateSpeech(ctx, SpeechRequest{Text: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, apiHealth, r.URL.Path)
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, time.Second)
	require.NoError(t, c.HealthCheck(context.Background()))

	unhealthy.Store(true)
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrUnexpectedResponse)

	assert.Error(t, NewHTTPClient("http://127.0.0.1:1", 100*time.Millisecond).HealthCheck(context.Background()))
}
