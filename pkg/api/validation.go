package api

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAction       = errors.New("unknown review action")
	ErrFeedbackRequired    = errors.New("feedback is required")
	ErrInvalidQualityScore = errors.New("quality score must be between 1 and 5")
	ErrScoreNotAllowed     = errors.New("quality score is only given on approval")
	ErrEmptyComment        = errors.New("comment cannot be empty")
	ErrMissingCredentials  = errors.New("email and password are required")
	ErrUnknownPortal       = errors.New("portal must be customer or employee")
	ErrUnknownFormat       = errors.New("format must be csv or json")
)

// Validate checks a decision before it is sent: approvals may carry a quality
// score, rejections and revision requests must explain themselves.
func (d ReviewDecision) Validate() error {
	if d.QualityScore != nil && (*d.QualityScore < 1 || *d.QualityScore > 5) {
		return fmt.Errorf("%w, got %d", ErrInvalidQualityScore, *d.QualityScore)
	}
	switch d.Action {
	case ActionApprove:
		return nil
	case ActionReject, ActionRevise:
		if d.QualityScore != nil {
			return fmt.Errorf("%w, not on %s", ErrScoreNotAllowed, d.Action)
		}
		if strings.TrimSpace(d.Feedback) == "" {
			return fmt.Errorf("%w to %s an annotation", ErrFeedbackRequired, d.Action)
		}
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, d.Action)
	}
}

func (r BulkReviewRequest) Validate() error {
	if r.QualityScore != nil && (*r.QualityScore < 1 || *r.QualityScore > 5) {
		return fmt.Errorf("%w, got %d", ErrInvalidQualityScore, *r.QualityScore)
	}
	return nil
}

func (c CommentRequest) Validate() error {
	if strings.TrimSpace(c.Body) == "" {
		return ErrEmptyComment
	}
	return nil
}

func (l LoginRequest) Validate() error {
	if l.Email == "" || l.Password == "" {
		return ErrMissingCredentials
	}
	if l.Portal != PortalCustomer && l.Portal != PortalEmployee {
		return fmt.Errorf("%w, got %q", ErrUnknownPortal, l.Portal)
	}
	return nil
}

func (p ExportParams) Validate() error {
	if p.Format != "csv" && p.Format != "json" {
		return fmt.Errorf("%w, got %q", ErrUnknownFormat, p.Format)
	}
	return nil
}
