package api_test

import (
	"merot-portal/pkg/api"
	"testing"

	"github.com/stretchr/testify/assert"
)

func score(v int) *int { return &v }

func TestReviewDecisionValidate(t *testing.T) {
	tests := []struct {
		name     string
		decision api.ReviewDecision
		err      error
	}{
		{"ApproveBare", api.ReviewDecision{Action: api.ActionApprove}, nil},
		{"ApproveScored", api.ReviewDecision{Action: api.ActionApprove, QualityScore: score(5)}, nil},
		{"ApproveScoreTooLow", api.ReviewDecision{Action: api.ActionApprove, QualityScore: score(0)}, api.ErrInvalidQualityScore},
		{"ApproveScoreTooHigh", api.ReviewDecision{Action: api.ActionApprove, QualityScore: score(6)}, api.ErrInvalidQualityScore},
		{"RejectNoFeedback", api.ReviewDecision{Action: api.ActionReject}, api.ErrFeedbackRequired},
		{"RejectBlankFeedback", api.ReviewDecision{Action: api.ActionReject, Feedback: "  "}, api.ErrFeedbackRequired},
		{"Reject", api.ReviewDecision{Action: api.ActionReject, Feedback: "wrong labels", Issues: []string{"labels"}}, nil},
		{"ReviseNoFeedback", api.ReviewDecision{Action: api.ActionRevise}, api.ErrFeedbackRequired},
		{"Revise", api.ReviewDecision{Action: api.ActionRevise, Feedback: "tighten boxes"}, nil},
		{"RejectScored", api.ReviewDecision{Action: api.ActionReject, Feedback: "wrong labels", QualityScore: score(2)}, api.ErrScoreNotAllowed},
		{"ReviseScored", api.ReviewDecision{Action: api.ActionRevise, Feedback: "tighten boxes", QualityScore: score(3)}, api.ErrScoreNotAllowed},
		{"Unknown", api.ReviewDecision{Action: "escalate"}, api.ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestRequestValidation(t *testing.T) {
	assert.ErrorIs(t, api.CommentRequest{Body: "\n"}.Validate(), api.ErrEmptyComment)
	assert.NoError(t, api.CommentRequest{Body: "looks good"}.Validate())

	assert.ErrorIs(t, api.LoginRequest{Email: "a@b.c", Portal: api.PortalEmployee}.Validate(), api.ErrMissingCredentials)
	assert.ErrorIs(t, api.LoginRequest{Email: "a@b.c", Password: "pw", Portal: "admin"}.Validate(), api.ErrUnknownPortal)
	assert.NoError(t, api.LoginRequest{Email: "a@b.c", Password: "pw", Portal: api.PortalCustomer}.Validate())

	assert.ErrorIs(t, api.ExportParams{Format: "xlsx"}.Validate(), api.ErrUnknownFormat)
	assert.NoError(t, api.ExportParams{Format: "csv"}.Validate())

	assert.ErrorIs(t, api.BulkReviewRequest{QualityScore: score(9)}.Validate(), api.ErrInvalidQualityScore)
}
