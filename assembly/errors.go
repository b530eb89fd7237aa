// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package assembly

import "errors"

var (
	ErrInvalidState           = errors.New("operation not valid for this agenda item")
	ErrVotingNotOpen          = errors.New("voting is not open")
	ErrDuplicateVote          = errors.New("ballot already cast")
	ErrInvalidStateTransition = errors.New("invalid assembly state transition")
	ErrNotFound               = errors.New("not found")
	ErrNotPermitted           = errors.New("not permitted")
	ErrValidation             = errors.New("validation failed")
)

// Kind names the error category of err for API responses, or "" when err is
// not one of the package's sentinel errors.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, ErrVotingNotOpen):
		return "VotingNotOpen"
	case errors.Is(err, ErrDuplicateVote):
		return "DuplicateVote"
	case errors.Is(err, ErrInvalidStateTransition):
		return "InvalidStateTransition"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrNotPermitted):
		return "NotPermitted"
	case errors.Is(err, ErrValidation):
		return "Validation"
	}
	return ""
}
