package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
)

// ValidateOptions tunes Task validation.
type ValidateOptions struct {
	// DueDateLayout, when set, is a Go time layout every due date must parse with.
	// Empty means due dates are free text.
	DueDateLayout string
}

// Validate checks the write-time invariants of a Task. It reports every
// problem at once as an *apperr.Error with CodeValidation.
//
// Priority is never clamped: a value outside [MinPriority, MaxPriority] is
// rejected, and a missing priority (zero) is out of range.
func (t Task) Validate(opts ValidateOptions) error {
	var problems []string

	problems = appendRequired(problems, "title", t.Title)
	problems = appendRequired(problems, "description", t.Description)
	problems = appendRequired(problems, "due_date", t.DueDate)
	problems = appendRequired(problems, "status", t.Status)

	if t.Priority < MinPriority || t.Priority > MaxPriority {
		problems = append(problems, fmt.Sprintf("priority must be between %d and %d, got %d", MinPriority, MaxPriority, t.Priority))
	}

	if opts.DueDateLayout != "" && strings.TrimSpace(t.DueDate) != "" {
		if _, err := time.Parse(opts.DueDateLayout, t.DueDate); err != nil {
			problems = append(problems, fmt.Sprintf("due_date %q does not match layout %q", t.DueDate, opts.DueDateLayout))
		}
	}

	problems = append(problems, t.Dependencies.Problems()...)

	if len(problems) > 0 {
		return apperr.Validation("invalid task", problems...)
	}
	return nil
}

// Validate checks that feedback carries a user id and some text.
func (f Feedback) Validate() error {
	var problems []string
	if f.UserID == nil {
		problems = append(problems, "user_id is required")
	}
	problems = appendRequired(problems, "feedback", f.Feedback)

	if len(problems) > 0 {
		return apperr.Validation("invalid feedback", problems...)
	}
	return nil
}

// Validate checks that the behavior has a description.
func (b Behavior) Validate() error {
	if problems := appendRequired(nil, "description", b.Description); len(problems) > 0 {
		return apperr.Validation("invalid behavior", problems...)
	}
	return nil
}

// Validate checks that the summary is not blank.
func (c ChatSummary) Validate() error {
	if problems := appendRequired(nil, "summary", c.Summary); len(problems) > 0 {
		return apperr.Validation("invalid chat summary", problems...)
	}
	return nil
}

func appendRequired(problems []string, field, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(problems, field+" is required")
	}
	return problems
}
