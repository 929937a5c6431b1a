package console

import (
	"clickmap/internal/config"
	"clickmap/internal/entity"
	"clickmap/internal/usecase"
	"clickmap/pkg/logg"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Command string

const (
	CommandScan     Command = "scan"
	CommandClean    Command = "clean"
	CommandAnnotate Command = "annotate"

	ExitOK      = 0
	ExitFailure = 1
)

// Request is what the command line asked the application to do.
type Request struct {
	Command Command
	Stems   []string
}

// NeedsBrowser reports whether the request drives a browser session.
func (r Request) NeedsBrowser() bool {
	return r.Command == CommandScan
}

type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	request Request
	out     io.Writer
	bar     *progressbar.ProgressBar
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	started bool
	mu      sync.Mutex
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
	Request Request
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		request: params.Request,
		out:     os.Stdout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start runs the request in the background and reports its exit code to
// onExit once it returns.
func (i *Interface) Start(onExit func(code int)) {
	i.mu.Lock()
	i.started = true
	i.mu.Unlock()

	go func() {
		code := i.Run()
		close(i.done)

		if onExit != nil {
			onExit(code)
		}
	}()
}

// Stop cancels the running request and waits for it to unwind.
func (i *Interface) Stop(ctx context.Context) error {
	i.once.Do(func() {
		i.logger.Info("Stopping console interface...")
		i.cancel()
	})

	i.mu.Lock()
	started := i.started
	i.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the request synchronously and returns the process exit code.
func (i *Interface) Run() int {
	switch i.request.Command {
	case CommandClean:
		return i.runClean()
	case CommandAnnotate:
		return i.runAnnotate()
	default:
		return i.runScan()
	}
}

func (i *Interface) runScan() int {
	i.printBanner()

	result, err := i.usecase.Scan.Run(i.ctx, i)
	if err != nil {
		i.logger.Error("Scan aborted", zap.Error(err))
		fmt.Fprintf(i.out, "\nScan aborted: %v\n", err)

		return ExitFailure
	}

	i.printSummary(result)

	return ExitOK
}

func (i *Interface) runClean() int {
	if err := i.usecase.Maintenance.Reset(i.ctx); err != nil {
		i.logger.Error("Reset failed", zap.Error(err))
		fmt.Fprintf(i.out, "Reset failed: %v\n", err)

		return ExitFailure
	}

	fmt.Fprintf(i.out, "Cleared %s and %s\n", i.config.ScanConfig.OutputDir, i.config.ScanConfig.VisDir)

	return ExitOK
}

func (i *Interface) runAnnotate() int {
	paths, err := i.usecase.Maintenance.Annotate(i.ctx, i.request.Stems)

	for _, p := range paths {
		fmt.Fprintf(i.out, "Annotated %s\n", p)
	}

	if err != nil {
		fmt.Fprintf(i.out, "Annotation failed: %v\n", err)

		return ExitFailure
	}

	if len(paths) == 0 {
		fmt.Fprintf(i.out, "No reports found in %s\n", i.config.ScanConfig.OutputDir)
	}

	return ExitOK
}

// BatchStarted implements ports.ScanObserver.
func (i *Interface) BatchStarted(total int) {
	fmt.Fprintf(i.out, "Scanning %d URL(s) from %s with %s\n\n",
		total, i.config.ScanConfig.URLFile, i.usecase.Browser.Engine())

	i.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(i.out),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(i.out)
		}),
	)
}

// URLFinished implements ports.ScanObserver.
func (i *Interface) URLFinished(outcome entity.Outcome) {
	if i.bar == nil {
		return
	}

	i.bar.Describe(outcome.URL)
	_ = i.bar.Add(1)
}

func (i *Interface) printSummary(result *entity.BatchResult) {
	if i.bar != nil {
		_ = i.bar.Finish()
	}

	elapsed := result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)

	fmt.Fprintf(i.out, "\n%s\n", strings.Repeat("-", 60))
	fmt.Fprintf(i.out, "Run %s: %d processed, %d abandoned in %s\n",
		result.RunID, result.Done(), result.Abandoned(), elapsed)

	for _, o := range result.Outcomes {
		switch o.State {
		case entity.StateDone:
			fmt.Fprintf(i.out, "  ok        %-40s %d element(s), %d attempt(s)\n", o.URL, o.Elements, o.Attempts)
		case entity.StateAbandoned:
			fmt.Fprintf(i.out, "  abandoned %-40s %v\n", o.URL, o.Err)
		}
	}

	fmt.Fprintf(i.out, "\nReports written to %s\n", i.config.ScanConfig.OutputDir)
}

func (i *Interface) printBanner() {
	banner := `
+----------------------------------------------------------+
|                        clickmap                          |
|     clickable element maps and screenshots per site      |
+----------------------------------------------------------+
`
	fmt.Fprintln(i.out, banner)
}
