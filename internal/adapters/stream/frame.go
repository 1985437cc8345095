package stream

import (
	"github.com/okian/aclguard/internal/domain/validate"
)

// Frame kinds and error codes sent to the client.
const (
	KindFeedback = "feedback"
	KindError    = "error"

	CodeInvalidSample       = "invalid_sample"
	CodeCollaboratorFailure = "collaborator_failure"
	CodeOutOfOrder          = "out_of_order"

	// WarningThreshold is the score above which feedback carries a warning.
	WarningThreshold = 0.7

	MessageHighRisk = "High risk movement detected"
	MessageSafe     = "Movement within safe range"
)

// Frame is an outbound message.
type Frame interface {
	Kind() string
}

// Feedback acknowledges one accepted sample.
type Feedback struct {
	Type      string  `json:"type"`
	Seq       int64   `json:"seq"`
	RiskScore float64 `json:"risk_score"`
	Warning   bool    `json:"warning"`
	Message   string  `json:"message"`
}

// Kind implements Frame.
func (Feedback) Kind() string { return KindFeedback }

// Failure reports a sample the lane did not accept. The lane stays open.
type Failure struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Kind implements Frame.
func (Failure) Kind() string { return KindError }

// inbound is one client message: a raw sample with an optional sequence
// number echoed back in the reply.
type inbound struct {
	validate.RawSample
	Seq *int64 `json:"seq,omitempty"`
}

func feedback(seq int64, score float64) Feedback {
	f := Feedback{Type: KindFeedback, Seq: seq, RiskScore: score, Message: MessageSafe}
	if score > WarningThreshold {
		f.Warning = true
		f.Message = MessageHighRisk
	}
	return f
}

func failure(seq int64, code, msg string) Failure {
	return Failure{Type: KindError, Seq: seq, Code: code, Message: msg}
}
