// Package voting implements vote casting against the local database and
// the external vote ledger
package voting

// Code classifies why a vote was rejected. The set is closed; clients
// switch on these values.
type Code string

const (
	CodeAlreadyVoted     Code = "ALREADY_VOTED"
	CodeInactiveElection Code = "INACTIVE_ELECTION"
	CodeInvalidCandidate Code = "INVALID_CANDIDATE"
	CodeBlockchainError  Code = "BLOCKCHAIN_ERROR"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// Error is a vote rejection carrying its classification code
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func rejection(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}
