package main

import (
	"context"
	"fmt"
	"merot-portal/internal/shell"
	"merot-portal/pkg/api"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

func runQueue(ctx context.Context, a *app, args []string) error {
	var (
		page                    int
		pageSize                int
		taskType, project, expr string
	)
	if _, err := parseFlags("queue", args, func(flags *pflag.FlagSet) {
		flags.IntVar(&page, "page", 1, "page to show")
		flags.IntVar(&pageSize, "page-size", shell.DefaultPageSize, "items per page")
		flags.StringVar(&taskType, "type", "", "only this task type")
		flags.StringVar(&project, "project", "", "only this project")
		flags.StringVar(&expr, "filter", "", `filter expression, e.g. 'annotator CONTAINS "dana" OR priority > 2'`)
	}); err != nil {
		return err
	}

	queue := shell.NewReviewQueue(a.client, pageSize)
	queue.SetScope(taskType, project)
	if err := queue.SetFilter(expr); err != nil {
		return err
	}
	if err := queue.Load(ctx, page); err != nil {
		return withBanner(&queue.Banner, err)
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ANNOTATION\tTYPE\tPROJECT\tPRIORITY\tANNOTATOR\tSUBMITTED")
	for _, item := range queue.Items() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			item.Annotation.Id, item.Task.TaskType, item.Task.Project, item.Task.Priority,
			item.Annotator, item.Annotation.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nPage %d of %d (%d waiting)\n", queue.Page(), queue.Pages(), queue.Total())
	return nil
}

func runReview(ctx context.Context, a *app, args []string) error {
	var (
		action   string
		score    int
		feedback string
		issues   []string
	)
	rest, err := parseFlags("review", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&action, "action", "", "approve, reject or revise")
		flags.IntVar(&score, "score", 0, "quality score 1-5 (approve only)")
		flags.StringVar(&feedback, "feedback", "", "feedback for the annotator")
		flags.StringArrayVar(&issues, "issue", nil, "an issue found in the annotation, may be repeated")
	})
	if err != nil {
		return err
	}

	annotationId, err := parseId(rest, "annotation id")
	if err != nil {
		return err
	}

	decision := api.ReviewDecision{Action: action, Feedback: feedback, Issues: issues}
	if score != 0 {
		decision.QualityScore = &score
	}
	if err := decision.Validate(); err != nil {
		return err
	}

	session, err := shell.OpenReview(ctx, a.client, a.registry, a.env, annotationId)
	if err != nil {
		return err
	}

	item := session.Item()
	fmt.Fprintf(a.out, "Reviewing %s task %s by %s\n", item.Task.TaskType, item.Task.Id, item.Annotator)

	res, err := session.Decide(ctx, decision)
	if err != nil {
		return withBanner(&session.Banner, err)
	}
	fmt.Fprintf(a.out, "Annotation %s is now %s\n", res.Id, res.Status)
	return nil
}

func runBulk(ctx context.Context, a *app, args []string) error {
	var (
		score    int
		feedback string
	)
	rest, err := parseFlags("bulk", args, func(flags *pflag.FlagSet) {
		flags.IntVar(&score, "score", 0, "quality score 1-5 (approve only)")
		flags.StringVar(&feedback, "feedback", "", "feedback for the annotators")
	})
	if err != nil {
		return err
	}
	if len(rest) < 2 {
		return usageErrorf("expected an action and at least one annotation id")
	}

	queue := shell.NewReviewQueue(a.client, 0)
	for _, arg := range rest[1:] {
		id, err := uuid.Parse(arg)
		if err != nil {
			return usageErrorf("invalid annotation id %q", arg)
		}
		queue.Toggle(id)
	}

	var message string
	switch rest[0] {
	case api.ActionApprove:
		var qualityScore *int
		if score != 0 {
			qualityScore = &score
		}
		message, err = queue.BulkApprove(ctx, qualityScore, feedback)
	case api.ActionReject:
		message, err = queue.BulkReject(ctx, feedback)
	default:
		return usageErrorf("unknown bulk action %q", rest[0])
	}
	if message != "" {
		fmt.Fprintln(a.out, message)
	}
	return withBanner(&queue.Banner, err)
}
