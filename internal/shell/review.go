package shell

import (
	"context"
	"errors"
	"fmt"
	"merot-portal/internal/annotation"
	"merot-portal/internal/query"
	"merot-portal/pkg/api"
	"slices"

	"github.com/google/uuid"
)

const DefaultPageSize = 20

var ErrNoSelection = errors.New("no annotations selected")

type ReviewGateway interface {
	ListReviewQueue(ctx context.Context, params api.ReviewQueueParams) (api.ReviewQueueResponse, error)
	GetAnnotationForReview(ctx context.Context, annotationId uuid.UUID) (api.ReviewItem, error)
	Review(ctx context.Context, annotationId uuid.UUID, decision api.ReviewDecision) (api.Annotation, error)
	BulkApprove(ctx context.Context, req api.BulkReviewRequest) (api.BulkReviewResponse, error)
	BulkReject(ctx context.Context, req api.BulkReviewRequest) (api.BulkReviewResponse, error)
}

// ReviewQueue pages through submitted annotations. The filter expression is
// applied to the loaded page; task type and project are also sent to the
// server so paging stays meaningful for the common cases.
type ReviewQueue struct {
	Banner

	gateway ReviewGateway
	params  api.ReviewQueueParams
	filter  query.Filter

	items    []api.ReviewItem
	total    int64
	selected map[uuid.UUID]bool
}

func NewReviewQueue(gateway ReviewGateway, pageSize int) *ReviewQueue {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ReviewQueue{
		gateway:  gateway,
		params:   api.ReviewQueueParams{Page: 1, PageSize: pageSize},
		selected: make(map[uuid.UUID]bool),
	}
}

// SetFilter replaces the current filter. An empty expression clears it.
func (q *ReviewQueue) SetFilter(expr string) error {
	if expr == "" {
		q.filter = nil
		return nil
	}
	filter, err := query.Parse(expr)
	if err != nil {
		return err
	}
	q.filter = filter
	return nil
}

func (q *ReviewQueue) SetScope(taskType, project string) {
	q.params.TaskType = taskType
	q.params.Project = project
	q.params.Page = 1
}

func (q *ReviewQueue) Load(ctx context.Context, page int) error {
	params := q.params
	params.Page = max(page, 1)

	res, err := q.gateway.ListReviewQueue(ctx, params)
	if err != nil {
		return q.fail("load review queue", err)
	}

	q.Clear()
	q.params = params
	q.items = res.Items
	q.total = res.Total
	return nil
}

func (q *ReviewQueue) Reload(ctx context.Context) error {
	return q.Load(ctx, q.params.Page)
}

// Items returns the loaded page after filtering.
func (q *ReviewQueue) Items() []api.ReviewItem {
	return query.Apply(q.filter, q.items, query.ReviewItemFields)
}

func (q *ReviewQueue) Total() int64 { return q.total }

func (q *ReviewQueue) Page() int { return q.params.Page }

func (q *ReviewQueue) Pages() int {
	if q.total == 0 {
		return 1
	}
	return int((q.total + int64(q.params.PageSize) - 1) / int64(q.params.PageSize))
}

func (q *ReviewQueue) Toggle(annotationId uuid.UUID) {
	if q.selected[annotationId] {
		delete(q.selected, annotationId)
	} else {
		q.selected[annotationId] = true
	}
}

// SelectAll selects every visible item.
func (q *ReviewQueue) SelectAll() {
	for _, item := range q.Items() {
		q.selected[item.Annotation.Id] = true
	}
}

func (q *ReviewQueue) ClearSelection() {
	clear(q.selected)
}

func (q *ReviewQueue) Selected() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(q.selected))
	for id := range q.selected {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return ids
}

// BulkApprove approves the selection and returns the server's summary verbatim.
func (q *ReviewQueue) BulkApprove(ctx context.Context, qualityScore *int, feedback string) (string, error) {
	return q.bulk(ctx, "approve annotations", q.gateway.BulkApprove, qualityScore, feedback)
}

func (q *ReviewQueue) BulkReject(ctx context.Context, feedback string) (string, error) {
	return q.bulk(ctx, "reject annotations", q.gateway.BulkReject, nil, feedback)
}

func (q *ReviewQueue) bulk(ctx context.Context, action string, send func(context.Context, api.BulkReviewRequest) (api.BulkReviewResponse, error), qualityScore *int, feedback string) (string, error) {
	ids := q.Selected()
	if len(ids) == 0 {
		return "", ErrNoSelection
	}

	res, err := send(ctx, api.BulkReviewRequest{AnnotationIds: ids, QualityScore: qualityScore, Feedback: feedback})
	if err != nil {
		if isLocalValidation(err) {
			return "", err
		}
		return "", q.fail(action, err)
	}

	q.ClearSelection()
	if err := q.Reload(ctx); err != nil {
		return res.Message, err
	}
	return res.Message, nil
}

func isLocalValidation(err error) bool {
	return errors.Is(err, api.ErrFeedbackRequired) || errors.Is(err, api.ErrInvalidQualityScore) || errors.Is(err, api.ErrUnknownAction)
}

// ReviewSession shows one submitted annotation in its widget and records the
// reviewer's decision.
type ReviewSession struct {
	Banner

	gateway ReviewGateway
	item    api.ReviewItem
	widget  annotation.Widget

	decided *api.Annotation
}

func OpenReview(ctx context.Context, gateway ReviewGateway, registry *Registry, env Environment, annotationId uuid.UUID) (*ReviewSession, error) {
	item, err := gateway.GetAnnotationForReview(ctx, annotationId)
	if err != nil {
		return nil, fmt.Errorf("error loading annotation %s: %w", annotationId, err)
	}

	widget, err := registry.Build(item.Task, env, &item.Annotation.AnnotationDraft)
	if err != nil {
		return nil, fmt.Errorf("error building %s widget: %w", item.Task.TaskType, err)
	}

	return &ReviewSession{gateway: gateway, item: item, widget: widget}, nil
}

func (s *ReviewSession) Item() api.ReviewItem { return s.item }

func (s *ReviewSession) Widget() annotation.Widget { return s.widget }

// Decision is the annotation as returned after the decision, nil until Decide
// succeeds.
func (s *ReviewSession) Decision() *api.Annotation { return s.decided }

// Decide validates the decision locally and sends it. Invalid decisions never
// reach the network.
func (s *ReviewSession) Decide(ctx context.Context, decision api.ReviewDecision) (api.Annotation, error) {
	if err := decision.Validate(); err != nil {
		return api.Annotation{}, err
	}

	res, err := s.gateway.Review(ctx, s.item.Annotation.Id, decision)
	if err != nil {
		return api.Annotation{}, s.fail(decision.Action+" annotation", err)
	}

	s.Clear()
	s.decided = &res
	s.item.Annotation = res
	return res, nil
}
