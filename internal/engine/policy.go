package engine

import "supportbot/internal/domain"

// Fixed replies of the response policy.
const (
	MsgNotTrained            = "I'm still learning! Please train me first."
	MsgTechnicalDifficulties = "I'm experiencing some technical difficulties. Please try again."
	MsgBasicFallback         = "I'm not sure how to help with that. Could you please rephrase your question?"
	MsgDefaultFallback       = "I'm not sure how to help with that. Could you please be more specific?"
	HedgePrefix              = "I think this might help: "
)

var intentFallbacks = map[domain.Intent]string{
	domain.IntentGreeting:  "Hello! How can I help you today?",
	domain.IntentHelp:      "I'd be happy to help you. Could you please provide more details?",
	domain.IntentAccount:   "For account-related issues, please check your account settings or contact support.",
	domain.IntentBilling:   "For billing inquiries, please review your billing information or contact our billing department.",
	domain.IntentTechnical: "I understand you're experiencing technical issues. Please try refreshing or contact technical support.",
	domain.IntentGeneral:   "I'm not sure I understand. Could you please rephrase your question?",
}

var confidentPrefixes = map[domain.Intent]string{
	domain.IntentGreeting: "Hello! ",
	domain.IntentHelp:     "I can definitely help with that. ",
}

// FallbackFor returns the intent-specific fallback of the enhanced engine.
func FallbackFor(label domain.Intent) string {
	if msg, ok := intentFallbacks[label]; ok {
		return msg
	}
	return MsgDefaultFallback
}

// Decorate adjusts a stored response by intent confidence: a confident
// greeting or help intent gets a lead-in phrase, a weak prediction is hedged.
func Decorate(response string, label domain.Intent, confidence float64) string {
	switch {
	case confidence > 0.8:
		if prefix, ok := confidentPrefixes[label]; ok {
			return prefix + response
		}
	case confidence < 0.5:
		return HedgePrefix + response
	}
	return response
}

func similarityBand(score float64) string {
	switch {
	case score > 0.8:
		return "high"
	case score > 0.5:
		return "medium"
	default:
		return "low"
	}
}
