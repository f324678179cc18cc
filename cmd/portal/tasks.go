package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"merot-portal/internal/query"
	"merot-portal/internal/shell"
	"merot-portal/pkg/api"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("invalid usage")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func parseFlags(name string, args []string, setup func(flags *pflag.FlagSet)) ([]string, error) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if setup != nil {
		setup(flags)
	}
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return flags.Args(), nil
}

func parseId(args []string, what string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, usageErrorf("expected exactly one %s", what)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, usageErrorf("invalid %s %q", what, args[0])
	}
	return id, nil
}

func readDraft(path string) (api.AnnotationDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.AnnotationDraft{}, fmt.Errorf("error reading draft: %w", err)
	}
	var draft api.AnnotationDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return api.AnnotationDraft{}, fmt.Errorf("error parsing draft %s: %w", path, err)
	}
	return draft, nil
}

func (a *app) printJSON(v any) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// withBanner adds the shell's banner to a failed request so the user sees the
// same message the page would show.
func withBanner(banner *shell.Banner, err error) error {
	if err != nil && banner.Message() != "" {
		return errors.New(banner.Message())
	}
	return err
}

func runLogin(ctx context.Context, a *app, args []string) error {
	var email, password string
	if _, err := parseFlags("login", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&email, "email", "", "account email")
		flags.StringVar(&password, "password", "", "account password")
	}); err != nil {
		return err
	}

	user, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in to the %s portal as %s (%s)\n", a.client.Store().Namespace(), user.Name, user.Role)
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	user, ok := a.client.Store().User()
	if !ok {
		fmt.Fprintf(a.out, "Not signed in. Sign in at %s\n", a.client.Store().LoginRoute())
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> %s\n", user.Name, user.Email, user.Role)
	return nil
}

func runTasks(ctx context.Context, a *app, args []string) error {
	var status, expr string
	if _, err := parseFlags("tasks", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&status, "status", "", "only tasks with this status")
		flags.StringVar(&expr, "filter", "", `filter expression, e.g. 'type = "ner" AND priority > 1'`)
	}); err != nil {
		return err
	}

	var filter query.Filter
	if expr != "" {
		var err error
		if filter, err = query.Parse(expr); err != nil {
			return err
		}
	}

	tasks, err := a.client.ListAssignedTasks(ctx, status)
	if err != nil {
		return err
	}
	tasks = query.Apply(filter, tasks, query.TaskFields)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPROJECT\tSTATUS\tPRIORITY")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", t.Id, t.TaskType, t.Project, t.Status, t.Priority)
	}
	return w.Flush()
}

func (a *app) openTask(ctx context.Context, args []string) (*shell.TaskSession, error) {
	taskId, err := parseId(args, "task id")
	if err != nil {
		return nil, err
	}
	return shell.OpenTask(ctx, a.client, a.registry, a.env, taskId)
}

func runShow(ctx context.Context, a *app, args []string) error {
	session, err := a.openTask(ctx, args)
	if err != nil {
		return err
	}

	task := session.Task()
	fmt.Fprintf(a.out, "Task %s (%s, %s)\nStatus: %s  Priority: %d\n", task.Id, task.TaskType, task.Project, task.Status, task.Priority)
	if task.Data.Instructions != "" {
		fmt.Fprintf(a.out, "Instructions: %s\n", task.Data.Instructions)
	}
	if task.Data.Text != "" {
		fmt.Fprintf(a.out, "\n%s\n", task.Data.Text)
	}
	if len(task.Data.Labels) > 0 {
		fmt.Fprintf(a.out, "Labels: %s\n", strings.Join(task.Data.Labels, ", "))
	}

	draft, err := session.Widget().Draft()
	if err != nil {
		fmt.Fprintf(a.out, "\nNo submittable draft yet: %v\n", err)
		return nil
	}
	fmt.Fprintln(a.out, "\nCurrent draft:")
	return a.printJSON(draft)
}

func importDraft(session *shell.TaskSession, path string) error {
	if path == "" {
		return nil
	}
	draft, err := readDraft(path)
	if err != nil {
		return err
	}
	return session.Import(draft)
}

func runSave(ctx context.Context, a *app, args []string) error {
	var draftPath string
	rest, err := parseFlags("save", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&draftPath, "draft", "", "annotation draft JSON file")
	})
	if err != nil {
		return err
	}
	if draftPath == "" {
		return usageErrorf("--draft is required")
	}

	session, err := a.openTask(ctx, rest)
	if err != nil {
		return err
	}
	if err := importDraft(session, draftPath); err != nil {
		return err
	}

	saved, err := session.Save(ctx)
	if err != nil {
		return withBanner(&session.Banner, err)
	}
	fmt.Fprintf(a.out, "Draft saved (annotation %s)\n", saved.Id)
	return nil
}

func runSubmit(ctx context.Context, a *app, args []string) error {
	var draftPath string
	rest, err := parseFlags("submit", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&draftPath, "draft", "", "annotation draft JSON file, defaults to the saved draft")
	})
	if err != nil {
		return err
	}

	session, err := a.openTask(ctx, rest)
	if err != nil {
		return err
	}
	if err := importDraft(session, draftPath); err != nil {
		return err
	}

	submitted, err := session.Submit(ctx)
	if err != nil {
		return withBanner(&session.Banner, err)
	}
	fmt.Fprintf(a.out, "Annotation %s submitted for review\n", submitted.Id)
	return nil
}

func runUnsubmit(ctx context.Context, a *app, args []string) error {
	session, err := a.openTask(ctx, args)
	if err != nil {
		return err
	}

	withdrawn, err := session.Unsubmit(ctx)
	if err != nil {
		return withBanner(&session.Banner, err)
	}
	fmt.Fprintf(a.out, "Annotation %s withdrawn from review\n", withdrawn.Id)
	return nil
}

func runRevision(ctx context.Context, a *app, args []string) error {
	var draftPath string
	rest, err := parseFlags("revision", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&draftPath, "draft", "", "revised annotation draft JSON file; resubmits when set")
	})
	if err != nil {
		return err
	}

	taskId, err := parseId(rest, "task id")
	if err != nil {
		return err
	}

	session, err := shell.OpenRevision(ctx, a.client, a.registry, a.env, taskId)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Reviewer feedback: %s\n", session.Feedback())
	if score := session.QualityScore(); score != nil {
		fmt.Fprintf(a.out, "Quality score: %d/5\n", *score)
	}
	for _, issue := range session.Issues() {
		fmt.Fprintf(a.out, "  - %s\n", issue)
	}

	if draftPath == "" {
		return nil
	}
	if err := importDraft(session.TaskSession, draftPath); err != nil {
		return err
	}

	resubmitted, err := session.Resubmit(ctx)
	if err != nil {
		return withBanner(&session.Banner, err)
	}
	fmt.Fprintf(a.out, "Annotation %s resubmitted for review\n", resubmitted.Id)
	return nil
}
