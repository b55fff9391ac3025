package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceAttributes(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("APP_VERSION", "")
	t.Setenv("GIT_SHA", "abc123")
	t.Setenv("HOSTNAME", "")

	attrs := resourceAttributes("studioflow")
	got := map[string]string{}
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, map[string]string{
		"service.name":           "studioflow",
		"deployment.environment": "staging",
		"service.version":        "abc123",
	}, got)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
