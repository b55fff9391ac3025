package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type sinkEntry struct {
	Source   string            `json:"source"`
	Level    string            `json:"level"`
	Message  string            `json:"message"`
	Time     time.Time         `json:"time"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sink posts log entries to a collector's /v1/logs endpoint. Entries are
// queued on a bounded channel and dropped when it is full so logging never
// blocks a request.
type Sink struct {
	baseURL string
	apiKey  string
	source  string
	client  *http.Client
	ch      chan sinkEntry
	done    chan struct{}
	once    sync.Once
}

func NewSink(baseURL, apiKey, source string, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 200
	}
	s := &Sink{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		source:  source,
		client:  &http.Client{Timeout: 3 * time.Second},
		ch:      make(chan sinkEntry, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.ch {
		body, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		req, err := http.NewRequest(http.MethodPost, s.baseURL+"/v1/logs", bytes.NewReader(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.apiKey)
		}
		resp, err := s.client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
		}
	}
}

// Close stops accepting entries and waits for queued ones to be sent.
func (s *Sink) Close() {
	s.once.Do(func() { close(s.ch) })
	<-s.done
}

func (s *Sink) offer(e sinkEntry) {
	defer func() {
		// send on a closed channel after shutdown
		_ = recover()
	}()
	select {
	case s.ch <- e:
	default:
	}
}

// Attach tees logger into the sink at info level and above.
func (s *Sink) Attach(logger *zap.Logger) *zap.Logger {
	core := &sinkCore{level: zapcore.InfoLevel, sink: s}
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	}))
}

type sinkCore struct {
	level  zapcore.LevelEnabler
	fields []zapcore.Field
	sink   *Sink
}

func (c *sinkCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *sinkCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *sinkCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	metadata := make(map[string]string, len(enc.Fields))
	for k, v := range enc.Fields {
		metadata[k] = fmt.Sprint(v)
	}
	c.sink.offer(sinkEntry{
		Source:   c.sink.source,
		Level:    entry.Level.String(),
		Message:  entry.Message,
		Time:     entry.Time,
		Metadata: metadata,
	})
	return nil
}

func (c *sinkCore) Sync() error { return nil }
