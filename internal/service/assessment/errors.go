package assessment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest        = errors.New("invalid assessment request")
	ErrPlayerInactive        = errors.New("player is not active")
	ErrIneligiblePlayer      = errors.New("player is not eligible for this assessment")
	ErrAssessmentUnavailable = errors.New("assessment type is not offered for the player's sport")
	ErrIncomplete            = errors.New("assessment has unanswered tests")
	ErrAlreadySubmitted      = errors.New("session has already been submitted")
	ErrSessionChanged        = errors.New("current session changed while submitting")
	ErrNotConfirmed          = errors.New("backend has not confirmed the session as complete")
)

// IncompleteError lists the tests still missing an answer.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIncomplete, strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncomplete }
