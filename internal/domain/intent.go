package domain

// Intent is the coarse purpose of a query. The set is closed.
type Intent string

const (
	IntentGreeting  Intent = "greeting"
	IntentHelp      Intent = "help"
	IntentAccount   Intent = "account"
	IntentBilling   Intent = "billing"
	IntentTechnical Intent = "technical"
	IntentGeneral   Intent = "general"
)

// Intents lists every label in class-index order.
var Intents = []Intent{
	IntentGreeting,
	IntentHelp,
	IntentAccount,
	IntentBilling,
	IntentTechnical,
	IntentGeneral,
}

// Index returns the class index of the intent, or -1 if it is not a known label.
func (i Intent) Index() int {
	for k, v := range Intents {
		if v == i {
			return k
		}
	}
	return -1
}
