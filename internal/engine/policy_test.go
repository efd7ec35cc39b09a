package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"supportbot/internal/domain"
)

func TestDecorate(t *testing.T) {
	const resp = "Reset it from settings."
	cases := []struct {
		name  string
		label domain.Intent
		conf  float64
		want  string
	}{
		{"confident greeting", domain.IntentGreeting, 0.9, "Hello! " + resp},
		{"confident help", domain.IntentHelp, 0.81, "I can definitely help with that. " + resp},
		{"confident account", domain.IntentAccount, 0.95, resp},
		{"boundary is not confident", domain.IntentGreeting, 0.8, resp},
		{"middle", domain.IntentHelp, 0.6, resp},
		{"boundary is not hedged", domain.IntentBilling, 0.5, resp},
		{"weak", domain.IntentBilling, 0.49, HedgePrefix + resp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decorate(resp, tc.label, tc.conf))
		})
	}
}

func TestFallbackFor(t *testing.T) {
	seen := make(map[string]struct{})
	for _, label := range domain.Intents {
		msg := FallbackFor(label)
		assert.NotEqual(t, MsgDefaultFallback, msg)
		seen[msg] = struct{}{}
	}
	assert.Len(t, seen, len(domain.Intents))
	assert.Equal(t, MsgDefaultFallback, FallbackFor("smalltalk"))
}

func TestSimilarityBand(t *testing.T) {
	assert.Equal(t, "high", similarityBand(0.81))
	assert.Equal(t, "medium", similarityBand(0.8))
	assert.Equal(t, "low", similarityBand(0.5))
}
