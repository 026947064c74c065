package connector

import "errors"

// Outcome classifies the result of a connector operation.
type Outcome string

// Operation outcomes.
const (
	OutcomeOK           Outcome = "ok"
	OutcomeNotConnected Outcome = "not_connected"
	OutcomeFailed       Outcome = "failed"
)

// User-facing messages.
const (
	MessageLinkTokenCreated      = "Link token created"
	MessageConnected             = "Successfully connected account!"
	MessageNotConnected          = "Please connect an account first"
	MessageTransactionsRetrieved = "Transactions retrieved successfully"
	MessageDisconnected          = "Disconnected account"
)

// Result is the typed outcome of a connector operation. Operations never
// return bare errors; failures are carried in Err and rendered through Display.
type Result[T any] struct {
	Value   T
	Err     error
	Outcome Outcome
	Message string
}

func success[T any](value T, message string) Result[T] {
	return Result[T]{Value: value, Outcome: OutcomeOK, Message: message}
}

func failure[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeFailed, Message: "Error: " + err.Error(), Err: err}
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// Display returns the text a user interface shows for this result.
func (r Result[T]) Display() string {
	return r.Message
}

// Is reports whether the result failed with target anywhere in its chain.
func (r Result[T]) Is(target error) bool {
	return r.Err != nil && errors.Is(r.Err, target)
}
