package ui

// FailureOp names a user-visible operation whose failure gets a fixed message.
type FailureOp string

const (
	OpCreate      FailureOp = "create"
	OpPoll        FailureOp = "poll"
	OpResults     FailureOp = "results"
	OpSave        FailureOp = "save"
	OpHistory     FailureOp = "history"
	OpInfluencers FailureOp = "influencers"
	OpGenerate    FailureOp = "generate"
	OpSend        FailureOp = "send"
	OpEvents      FailureOp = "events"
	OpHealth      FailureOp = "health"
)

var failureText = map[FailureOp]string{
	OpCreate:      "Failed to create task.",
	OpPoll:        "Failed to refresh task status.",
	OpResults:     "Failed to load results.",
	OpSave:        "Failed to save influencers.",
	OpHistory:     "Failed to load search history.",
	OpInfluencers: "Failed to load influencers.",
	OpGenerate:    "Failed to generate draft.",
	OpSend:        "Failed to send campaign.",
	OpEvents:      "Failed to load campaign events.",
	OpHealth:      "API unreachable.",
}

// FailureText returns the message shown when op failed.
func FailureText(op FailureOp) string {
	if s, ok := failureText[op]; ok {
		return s
	}
	return "Request failed."
}
