package main

import (
	"context"
	"fmt"
	"io"
	"merot-portal/internal/export"
	"merot-portal/internal/notifications"
	"merot-portal/internal/shell"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
)

func runComments(ctx context.Context, a *app, args []string) error {
	var add, edit, body, del string
	rest, err := parseFlags("comments", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&add, "add", "", "post a new comment")
		flags.StringVar(&edit, "edit", "", "id of a comment to edit")
		flags.StringVar(&body, "body", "", "new text for --edit")
		flags.StringVar(&del, "delete", "", "id of a comment to delete")
	})
	if err != nil {
		return err
	}

	taskId, err := parseId(rest, "task id")
	if err != nil {
		return err
	}

	thread := shell.NewDiscussion(a.client, taskId)

	switch {
	case add != "":
		comment, err := thread.Add(ctx, add)
		if err != nil {
			return withBanner(&thread.Banner, err)
		}
		fmt.Fprintf(a.out, "Posted comment %s\n", comment.Id)
		return nil

	case edit != "":
		commentId, err := uuid.Parse(edit)
		if err != nil {
			return usageErrorf("invalid comment id %q", edit)
		}
		if _, err := thread.Edit(ctx, commentId, body); err != nil {
			return withBanner(&thread.Banner, err)
		}
		fmt.Fprintln(a.out, "Comment updated")
		return nil

	case del != "":
		commentId, err := uuid.Parse(del)
		if err != nil {
			return usageErrorf("invalid comment id %q", del)
		}
		if err := thread.Delete(ctx, commentId); err != nil {
			return withBanner(&thread.Banner, err)
		}
		fmt.Fprintln(a.out, "Comment deleted")
		return nil
	}

	if err := thread.Load(ctx); err != nil {
		return withBanner(&thread.Banner, err)
	}
	for _, c := range thread.Comments() {
		fmt.Fprintf(a.out, "[%s] %s (%s):\n  %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.AuthorName, c.Id, c.Body)
	}
	return nil
}

func runNotifications(ctx context.Context, a *app, args []string) error {
	var (
		watch   bool
		read    string
		readAll bool
	)
	if _, err := parseFlags("notifications", args, func(flags *pflag.FlagSet) {
		flags.BoolVar(&watch, "watch", false, "keep running and report unread count changes")
		flags.StringVar(&read, "read", "", "mark one notification as read")
		flags.BoolVar(&readAll, "read-all", false, "mark every notification as read")
	}); err != nil {
		return err
	}

	poller := notifications.NewPoller(a.client, a.cfg.PollInterval, func(count int64) {
		fmt.Fprintf(a.out, "%d unread\n", count)
	})

	switch {
	case watch:
		poller.Run(ctx)
		return nil

	case read != "":
		id, err := uuid.Parse(read)
		if err != nil {
			return usageErrorf("invalid notification id %q", read)
		}
		return poller.MarkAsRead(ctx, id)

	case readAll:
		return poller.MarkAllAsRead(ctx)
	}

	list, err := poller.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tREAD\tMESSAGE")
	for _, n := range list {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", n.Id, n.CreatedAt.Format("2006-01-02 15:04"), n.Read, n.Message)
	}
	return w.Flush()
}

func runExport(ctx context.Context, a *app, args []string) error {
	var (
		format string
		list   bool
	)
	if _, err := parseFlags("export", args, func(flags *pflag.FlagSet) {
		flags.StringVar(&format, "format", "csv", "csv or json")
		flags.BoolVar(&list, "list", false, "list stored exports instead of creating one")
	}); err != nil {
		return err
	}

	provider, err := a.cfg.Export.Provider(ctx)
	if err != nil {
		return err
	}
	exporter := export.NewExporter(a.client, provider, a.cfg.Export.Bucket)

	if list {
		objects, err := exporter.List(ctx)
		if err != nil {
			return err
		}
		for _, obj := range objects {
			fmt.Fprintf(a.out, "%s\t%d bytes\n", obj.Name, obj.Size)
		}
		return nil
	}

	res, err := exporter.Run(ctx, format, func(total int64) io.Writer {
		return progressbar.DefaultBytes(total, "uploading export")
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Export written to %s/%s (%d bytes)\n", res.Bucket, res.Key, res.Size)
	return nil
}
