// Command expensectl is the terminal front end of the expense tracker.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "time/tzdata"

	"expensetracker/internal/cli"
	"expensetracker/internal/client"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
)

const usage = `usage: expensectl <command> [flags]

commands:
  list        list expenses (-search, -category, -sort, -order)
  add         add an expense (-title, -amount, -category, -date, -description, -tags)
  rm <id>     delete an expense
  stats       server-side statistics (-start, -end)
  analytics   local analytics over the loaded list (-top, -months)

environment:
  EXPENSE_API_URL    API base URL (default http://localhost:5000)
  EXPENSE_CACHE_DIR  local cache directory
`

type app struct {
	api     *client.APIClient
	session *client.Session
	out     io.Writer
	styles  styles
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := applog.New(applog.Config{Level: level, Component: applog.ComponentClient, Output: os.Stderr})

	api := client.NewAPIClient(cfg.APIURL, nil)
	a := &app{
		api:     api,
		session: client.NewSession(api, client.NewFileCache(cfg.CacheDir), logger),
		out:     os.Stdout,
		styles:  defaultStyles(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, strings.ToLower(os.Args[1]), os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, a.styles.Error.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list", "ls":
		return a.list(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "rm", "delete":
		return a.remove(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	case "analytics":
		return a.analytics(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}
