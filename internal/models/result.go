package models

import "strings"

// ErrorType qualifies a failed Result for the UI.
type ErrorType string

const (
	ErrorDatesUnavailable ErrorType = "dates_unavailable"
	ErrorIncompleteData   ErrorType = "incomplete_data"
	ErrorGeneral          ErrorType = "general_error"
)

// Result is the canonical shape every backend call is reduced to.
// A failed Result never carries data and always has a message.
type Result[T any] struct {
	Success   bool      `json:"success"`
	Data      T         `json:"data"`
	Message   string    `json:"message"`
	ErrorType ErrorType `json:"errorType,omitempty"`
	IsBlocked bool      `json:"isBlocked,omitempty"`
}

// Ok builds a successful Result.
func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

// Fail builds a failed Result with zero data.
func Fail[T any](message string, errorType ErrorType) Result[T] {
	if strings.TrimSpace(message) == "" {
		message = MsgGenericFailure
	}
	return Result[T]{Message: message, ErrorType: errorType}
}

// FailAs copies the failure of another Result into a Result of a different type.
func FailAs[T, U any](r Result[U]) Result[T] {
	out := Fail[T](r.Message, r.ErrorType)
	out.IsBlocked = r.IsBlocked
	return out
}
