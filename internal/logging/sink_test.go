package logging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/config"
)

func TestSinkShipsInfoEntries(t *testing.T) {
	var (
		mu  sync.Mutex
		got []sinkEntry
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/logs", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var e sinkEntry
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&e)) {
			return
		}
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewSink(srv.URL+"/", "key", "studioflow-test", 10)
	logger := sink.Attach(zap.NewNop())
	logger.Debug("dropped")
	logger.With(zap.String("instance_id", "wf_1")).Info("step completed", zap.Int("n", 2))
	sink.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "step completed", got[0].Message)
	assert.Equal(t, "info", got[0].Level)
	assert.Equal(t, "studioflow-test", got[0].Source)
	assert.Equal(t, "wf_1", got[0].Metadata["instance_id"])
	assert.Equal(t, "2", got[0].Metadata["n"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "chatty"}, "")
	assert.Error(t, err)
}

func TestNewWithoutSink(t *testing.T) {
	logger, sink, err := New(config.LoggingConfig{Level: "debug", Development: true}, "svc")
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Nil(t, sink)
}
