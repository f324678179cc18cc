package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"merot-portal/cmd"
	"merot-portal/internal/auth"
	"merot-portal/internal/client"
	"merot-portal/internal/config"
	"merot-portal/internal/shell"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
)

type app struct {
	cfg      config.PortalConfig
	client   *client.Client
	registry *shell.Registry
	env      shell.Environment
	out      io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":         {"login --email EMAIL --password PASSWORD", runLogin},
	"logout":        {"logout", runLogout},
	"whoami":        {"whoami", runWhoami},
	"tasks":         {"tasks [--status STATUS] [--filter EXPR]", runTasks},
	"show":          {"show TASK_ID", runShow},
	"save":          {"save TASK_ID --draft FILE", runSave},
	"submit":        {"submit TASK_ID [--draft FILE]", runSubmit},
	"unsubmit":      {"unsubmit TASK_ID", runUnsubmit},
	"revision":      {"revision TASK_ID [--draft FILE]", runRevision},
	"queue":         {"queue [--page N] [--type TYPE] [--project NAME] [--filter EXPR]", runQueue},
	"review":        {"review ANNOTATION_ID --action approve|reject|revise [--score N] [--feedback TEXT] [--issue TEXT]...", runReview},
	"bulk":          {"bulk approve|reject ANNOTATION_ID... [--score N] [--feedback TEXT]", runBulk},
	"comments":      {"comments TASK_ID [--add TEXT | --edit ID --body TEXT | --delete ID]", runComments},
	"notifications": {"notifications [--watch] [--read ID] [--read-all]", runNotifications},
	"export":        {"export [--format csv|json] [--list]", runExport},
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: portal [global flags] COMMAND [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, global.FlagUsages())
}

func newApp(cfg config.PortalConfig, out io.Writer) (*app, error) {
	namespace, err := auth.ParseNamespace(cfg.Namespace)
	if err != nil {
		return nil, err
	}

	store := auth.NewStore(cfg.StateDir, namespace)
	if err := store.Load(); err != nil {
		return nil, err
	}

	display, err := cfg.DisplaySize()
	if err != nil {
		return nil, err
	}

	c := client.New(cfg.APIURL, store)
	c.OnUnauthorized(func(loginRoute string) {
		fmt.Fprintf(out, "Session expired. Sign in again (%s): portal login --namespace %s\n", loginRoute, namespace)
	})

	return &app{
		cfg:      cfg,
		client:   c,
		registry: shell.NewRegistry(),
		env:      shell.Environment{Display: display, Media: headlessMedia{}},
		out:      out,
	}, nil
}

func run(args []string, out io.Writer) error {
	global := pflag.NewFlagSet("portal", pflag.ContinueOnError)
	global.SetInterspersed(false)
	envFile := global.String("env", "", "path to load env from")
	namespace := global.String("namespace", "", "auth namespace: customer or employee (overrides MEROT_NAMESPACE)")
	apiURL := global.String("api-url", "", "API base url (overrides MEROT_API_URL)")
	verbose := global.BoolP("verbose", "v", false, "enable debug logging")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(out, global)
			return nil
		}
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(out, global)
		return nil
	}

	c, ok := commands[rest[0]]
	if !ok {
		printUsage(out, global)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cmd.LoadEnvFile(*envFile)

	cfg, err := config.LoadPortalConfig()
	if err != nil {
		return err
	}
	if *namespace != "" {
		cfg.Namespace = *namespace
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	a, err := newApp(cfg, out)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, a, rest[1:])
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
