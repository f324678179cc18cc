package shell

import (
	"context"
	"merot-portal/pkg/api"
	"slices"

	"github.com/google/uuid"
)

type DiscussionGateway interface {
	ListTaskComments(ctx context.Context, taskId uuid.UUID) ([]api.Comment, error)
	AddTaskComment(ctx context.Context, taskId uuid.UUID, body string) (api.Comment, error)
	UpdateComment(ctx context.Context, commentId uuid.UUID, body string) (api.Comment, error)
	DeleteComment(ctx context.Context, commentId uuid.UUID) error
}

// Discussion is the comment thread attached to a task.
type Discussion struct {
	Banner

	gateway  DiscussionGateway
	taskId   uuid.UUID
	comments []api.Comment
}

func NewDiscussion(gateway DiscussionGateway, taskId uuid.UUID) *Discussion {
	return &Discussion{gateway: gateway, taskId: taskId}
}

func (d *Discussion) Load(ctx context.Context) error {
	comments, err := d.gateway.ListTaskComments(ctx, d.taskId)
	if err != nil {
		return d.fail("load comments", err)
	}
	d.Clear()
	d.comments = comments
	return nil
}

func (d *Discussion) Comments() []api.Comment {
	return slices.Clone(d.comments)
}

func (d *Discussion) Add(ctx context.Context, body string) (api.Comment, error) {
	if err := (api.CommentRequest{Body: body}).Validate(); err != nil {
		return api.Comment{}, err
	}

	comment, err := d.gateway.AddTaskComment(ctx, d.taskId, body)
	if err != nil {
		return api.Comment{}, d.fail("post comment", err)
	}

	d.Clear()
	d.comments = append(d.comments, comment)
	return comment, nil
}

func (d *Discussion) Edit(ctx context.Context, commentId uuid.UUID, body string) (api.Comment, error) {
	if err := (api.CommentRequest{Body: body}).Validate(); err != nil {
		return api.Comment{}, err
	}

	comment, err := d.gateway.UpdateComment(ctx, commentId, body)
	if err != nil {
		return api.Comment{}, d.fail("edit comment", err)
	}

	d.Clear()
	if i := d.index(commentId); i >= 0 {
		d.comments[i] = comment
	}
	return comment, nil
}

func (d *Discussion) Delete(ctx context.Context, commentId uuid.UUID) error {
	if err := d.gateway.DeleteComment(ctx, commentId); err != nil {
		return d.fail("delete comment", err)
	}

	d.Clear()
	if i := d.index(commentId); i >= 0 {
		d.comments = slices.Delete(d.comments, i, i+1)
	}
	return nil
}

func (d *Discussion) index(commentId uuid.UUID) int {
	return slices.IndexFunc(d.comments, func(c api.Comment) bool { return c.Id == commentId })
}
