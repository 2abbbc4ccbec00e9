/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrWrongState    = errors.New("wrong state")
	ErrGameFull      = errors.New("game full")
	ErrNameTaken     = errors.New("name taken")
)

// Rejection carries a user-facing message for one of the sentinel errors.
type Rejection struct {
	kind    error
	message string
}

func reject(kind error, message string) error {
	return &Rejection{kind: kind, message: message}
}

func (r *Rejection) Error() string { return r.message }

func (r *Rejection) Unwrap() error { return r.kind }

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrWrongState):
		return "wrong_state"
	case errors.Is(err, ErrGameFull):
		return "game_full"
	case errors.Is(err, ErrNameTaken):
		return "name_taken"
	default:
		return "internal"
	}
}

func errorMessage(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.message
	}
	return "An unexpected error occurred."
}
