package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/rod"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// OpenSession starts the browser. Replaced in tests.
	OpenSession func(cfg listscrape.Config) (listscrape.Session, error)
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		OpenSession: openRodSession,
	}
}

// Run executes the CLI with the given arguments. Without a command the
// crawl runs with default settings.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:         ctx,
		Stdout:      stdout,
		Stderr:      stderr,
		OpenSession: m.OpenSession,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("listscrape"),
		kong.Description("Collect detail records from a paginated list site"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 1 && (args[0] == "help" || args[0] == "--help" || args[0] == "-h") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run(deps)
}

func openRodSession(cfg listscrape.Config) (listscrape.Session, error) {
	opts := []rod.SessionOption{
		rod.WithHeadless(cfg.Headless),
		rod.WithBlockedResources(cfg.BlockResources),
	}
	if cfg.BrowserBin != "" {
		opts = append(opts, rod.WithBrowserBin(cfg.BrowserBin))
	}
	return rod.NewSession(opts...)
}
