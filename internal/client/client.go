package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"merot-portal/internal/auth"
	"merot-portal/pkg/api"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var (
	ErrUnauthorized = errors.New("session expired, please sign in again")
	ErrNetwork      = errors.New("unable to reach the server")
)

// APIError is any non-2xx response other than 401.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Client struct {
	client *resty.Client
	store  *auth.Store

	onUnauthorized func(loginRoute string)
}

// New creates a gateway for the API rooted at baseURL, e.g.
// http://localhost:8000/api/v1. Every request carries the bearer token of the
// store's namespace.
func New(baseURL string, store *auth.Store) *Client {
	c := &Client{
		client: resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(60 * time.Second),
		store:  store,
	}

	c.client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if token := c.store.Token(); token != "" {
			r.SetAuthToken(token)
		}
		return nil
	})

	return c
}

// OnUnauthorized registers the hook invoked after a 401 has cleared the session.
func (c *Client) OnUnauthorized(fn func(loginRoute string)) {
	c.onUnauthorized = fn
}

func (c *Client) Store() *auth.Store {
	return c.store
}

func (c *Client) handleUnauthorized() {
	slog.Warn("session rejected by server, signing out", "namespace", c.store.Namespace())
	if err := c.store.Logout(); err != nil {
		slog.Error("error clearing session", "error", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(c.store.LoginRoute())
	}
}

func (c *Client) send(ctx context.Context, method, path string, body any, query map[string]string) (*resty.Response, error) {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		slog.Error("request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if res.StatusCode() == http.StatusUnauthorized {
		c.handleUnauthorized()
		return nil, ErrUnauthorized
	}

	if !res.IsSuccess() {
		return nil, &APIError{StatusCode: res.StatusCode(), Message: strings.TrimSpace(res.String())}
	}

	return res, nil
}

func request[T any](ctx context.Context, c *Client, method, path string, body any, query map[string]string) (T, error) {
	var out T

	res, err := c.send(ctx, method, path, body, query)
	if err != nil {
		return out, err
	}

	if len(res.Body()) > 0 {
		if err := json.Unmarshal(res.Body(), &out); err != nil {
			return out, fmt.Errorf("error parsing response from %s: %w", path, err)
		}
	}
	return out, nil
}

// Login authenticates against the store's namespace and persists the session.
// Bad credentials surface as an APIError rather than ErrUnauthorized.
func (c *Client) Login(ctx context.Context, email, password string) (api.User, error) {
	body := api.LoginRequest{Email: email, Password: password, Portal: string(c.store.Namespace())}
	if err := body.Validate(); err != nil {
		return api.User{}, err
	}

	res, err := c.client.R().SetContext(ctx).SetBody(body).Post("/auth/login")
	if err != nil {
		return api.User{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if !res.IsSuccess() {
		return api.User{}, &APIError{StatusCode: res.StatusCode(), Message: strings.TrimSpace(res.String())}
	}

	var login api.LoginResponse
	if err := json.Unmarshal(res.Body(), &login); err != nil {
		return api.User{}, fmt.Errorf("error parsing login response: %w", err)
	}

	if err := c.store.Login(login.Token, login.User); err != nil {
		return api.User{}, err
	}
	return login.User, nil
}

func (c *Client) Logout() error {
	return c.store.Logout()
}

func (c *Client) ListAssignedTasks(ctx context.Context, status string) ([]api.Task, error) {
	var query map[string]string
	if status != "" {
		query = map[string]string{"status": status}
	}
	return request[[]api.Task](ctx, c, http.MethodGet, "/employee/tasks", nil, query)
}

func (c *Client) GetTask(ctx context.Context, taskId uuid.UUID) (api.Task, error) {
	return request[api.Task](ctx, c, http.MethodGet, "/employee/tasks/"+taskId.String(), nil, nil)
}

func (c *Client) StartTask(ctx context.Context, taskId uuid.UUID) (api.Task, error) {
	return request[api.Task](ctx, c, http.MethodPost, "/employee/tasks/"+taskId.String()+"/start", nil, nil)
}

func (c *Client) SaveDraft(ctx context.Context, taskId uuid.UUID, draft api.AnnotationDraft) (api.Annotation, error) {
	return request[api.Annotation](ctx, c, http.MethodPost, "/employee/tasks/"+taskId.String()+"/draft", draft, nil)
}

func (c *Client) SubmitAnnotation(ctx context.Context, taskId uuid.UUID, draft api.AnnotationDraft) (api.Annotation, error) {
	return request[api.Annotation](ctx, c, http.MethodPost, "/employee/tasks/"+taskId.String()+"/submit", draft, nil)
}

func (c *Client) UnsubmitAnnotation(ctx context.Context, annotationId uuid.UUID) (api.Annotation, error) {
	return request[api.Annotation](ctx, c, http.MethodPost, "/employee/annotations/"+annotationId.String()+"/unsubmit", nil, nil)
}

func (c *Client) ListReviewQueue(ctx context.Context, params api.ReviewQueueParams) (api.ReviewQueueResponse, error) {
	query := map[string]string{}
	if params.Page > 0 {
		query["page"] = strconv.Itoa(params.Page)
	}
	if params.PageSize > 0 {
		query["page_size"] = strconv.Itoa(params.PageSize)
	}
	if params.TaskType != "" {
		query["task_type"] = params.TaskType
	}
	if params.Project != "" {
		query["project"] = params.Project
	}
	return request[api.ReviewQueueResponse](ctx, c, http.MethodGet, "/review/annotations", nil, query)
}

func (c *Client) GetAnnotationForReview(ctx context.Context, annotationId uuid.UUID) (api.ReviewItem, error) {
	return request[api.ReviewItem](ctx, c, http.MethodGet, "/review/annotations/"+annotationId.String(), nil, nil)
}

var reviewPaths = map[string]string{
	api.ActionApprove: "approve",
	api.ActionReject:  "reject",
	api.ActionRevise:  "revise",
}

// Review sends a decision to the endpoint matching its action. Invalid
// decisions are rejected before any request is made.
func (c *Client) Review(ctx context.Context, annotationId uuid.UUID, decision api.ReviewDecision) (api.Annotation, error) {
	if err := decision.Validate(); err != nil {
		return api.Annotation{}, err
	}
	if decision.Issues == nil {
		decision.Issues = []string{}
	}
	path := fmt.Sprintf("/review/annotations/%s/%s", annotationId, reviewPaths[decision.Action])
	return request[api.Annotation](ctx, c, http.MethodPost, path, decision, nil)
}

func (c *Client) ApproveAnnotation(ctx context.Context, annotationId uuid.UUID, qualityScore *int, feedback string) (api.Annotation, error) {
	return c.Review(ctx, annotationId, api.ReviewDecision{Action: api.ActionApprove, QualityScore: qualityScore, Feedback: feedback})
}

func (c *Client) RejectAnnotation(ctx context.Context, annotationId uuid.UUID, feedback string, issues []string) (api.Annotation, error) {
	return c.Review(ctx, annotationId, api.ReviewDecision{Action: api.ActionReject, Feedback: feedback, Issues: issues})
}

func (c *Client) RequestRevision(ctx context.Context, annotationId uuid.UUID, feedback string, issues []string) (api.Annotation, error) {
	return c.Review(ctx, annotationId, api.ReviewDecision{Action: api.ActionRevise, Feedback: feedback, Issues: issues})
}

func (c *Client) BulkApprove(ctx context.Context, req api.BulkReviewRequest) (api.BulkReviewResponse, error) {
	if err := req.Validate(); err != nil {
		return api.BulkReviewResponse{}, err
	}
	return request[api.BulkReviewResponse](ctx, c, http.MethodPost, "/review/annotations/bulk-approve", req, nil)
}

func (c *Client) BulkReject(ctx context.Context, req api.BulkReviewRequest) (api.BulkReviewResponse, error) {
	if err := (api.ReviewDecision{Action: api.ActionReject, QualityScore: req.QualityScore, Feedback: req.Feedback}).Validate(); err != nil {
		return api.BulkReviewResponse{}, err
	}
	return request[api.BulkReviewResponse](ctx, c, http.MethodPost, "/review/annotations/bulk-reject", req, nil)
}

func (c *Client) ListTaskComments(ctx context.Context, taskId uuid.UUID) ([]api.Comment, error) {
	return request[[]api.Comment](ctx, c, http.MethodGet, "/employee/tasks/"+taskId.String()+"/comments", nil, nil)
}

func (c *Client) AddTaskComment(ctx context.Context, taskId uuid.UUID, body string) (api.Comment, error) {
	req := api.CommentRequest{Body: body}
	if err := req.Validate(); err != nil {
		return api.Comment{}, err
	}
	return request[api.Comment](ctx, c, http.MethodPost, "/employee/tasks/"+taskId.String()+"/comments", req, nil)
}

func (c *Client) UpdateComment(ctx context.Context, commentId uuid.UUID, body string) (api.Comment, error) {
	req := api.CommentRequest{Body: body}
	if err := req.Validate(); err != nil {
		return api.Comment{}, err
	}
	return request[api.Comment](ctx, c, http.MethodPatch, "/employee/comments/"+commentId.String(), req, nil)
}

func (c *Client) DeleteComment(ctx context.Context, commentId uuid.UUID) error {
	_, err := c.send(ctx, http.MethodDelete, "/employee/comments/"+commentId.String(), nil, nil)
	return err
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	res, err := request[api.UnreadCountResponse](ctx, c, http.MethodGet, "/notifications/unread-count", nil, nil)
	return res.Count, err
}

func (c *Client) ListNotifications(ctx context.Context) ([]api.Notification, error) {
	return request[[]api.Notification](ctx, c, http.MethodGet, "/notifications", nil, nil)
}

func (c *Client) MarkAsRead(ctx context.Context, notificationId uuid.UUID) error {
	_, err := c.send(ctx, http.MethodPost, "/notifications/"+notificationId.String()+"/read", nil, nil)
	return err
}

func (c *Client) MarkAllAsRead(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodPost, "/notifications/read-all", nil, nil)
	return err
}

// Export is a downloaded analytics file. Its columns are decided by the server.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) ExportAnalytics(ctx context.Context, format string) (*Export, error) {
	params := api.ExportParams{Format: format}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	res, err := c.send(ctx, http.MethodGet, "/admin/analytics/export", nil, map[string]string{"format": format})
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("analytics.%s", format)
	if _, name, ok := strings.Cut(res.Header().Get("Content-Disposition"), "filename="); ok {
		filename = strings.Trim(name, `"`)
	}

	return &Export{Filename: filename, ContentType: res.Header().Get("Content-Type"), Data: res.Body()}, nil
}
