package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juev/envelope/internal/ast"
	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/envelope"
	"github.com/juev/envelope/internal/formatter"
	"github.com/juev/envelope/internal/include"
	"github.com/juev/envelope/internal/ledger"
	"github.com/juev/envelope/internal/render"
	"github.com/juev/envelope/internal/server"
)

type flags struct {
	file       string
	configPath string
	currency   string
	start      string
	end        string
	format     string
	verbose    bool
}

type app struct {
	flags  flags
	cfg    config.Config
	logger *zap.Logger
	out    io.Writer
	now    func() time.Time
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop(), now: time.Now}

	root := &cobra.Command{
		Use:           "envelope",
		Short:         "Envelope budgeting reports for beancount journals",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.file, "file", "f", "", "journal file (default: journal from the config file)")
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")
	pf.StringVar(&a.flags.currency, "currency", "", "envelope currency suffix, e.g. EUR for \"envelopeEUR\" directives")
	pf.StringVar(&a.flags.start, "start", "", "first month of the report (YYYY-MM)")
	pf.StringVar(&a.flags.end, "end", "", "last month of the report (YYYY-MM)")
	pf.StringVar(&a.flags.format, "format", "", "output format: table, yaml or json")
	pf.BoolVar(&a.flags.verbose, "verbose", false, "development logging at debug level")

	root.AddCommand(
		a.reportCmd(),
		a.treeCmd(),
		a.sankeyCmd(),
		a.intervalsCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.file != "" {
		cfg.Journal = a.flags.file
	}
	if a.flags.currency != "" {
		cfg.Currency = a.flags.currency
	}
	if a.flags.format != "" {
		cfg.Format = a.flags.format
	}
	cfg = config.Normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg, a.flags.verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func newLogger(cfg config.Config, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func (a *app) renderer() *render.Renderer {
	return render.New(a.out, a.cfg.Format, formatter.ParseNumberFormat(a.cfg.NumberFormat))
}

func (a *app) loadJournal() (*ast.Journal, error) {
	if a.cfg.Journal == "" {
		return nil, fmt.Errorf("no journal: pass --file or set journal in the config file")
	}
	loader := include.NewLoader()
	loader.SetLimits(a.cfg.IncludeLimits())

	journal, _, err := envelope.LoadJournal(loader, a.cfg.Journal, "", a.logger)
	return journal, err
}

func (a *app) window() (start, end time.Time, err error) {
	if start, err = parseMonth(a.flags.start); err != nil {
		return start, end, fmt.Errorf("--start: %w", err)
	}
	if end, err = parseMonth(a.flags.end); err != nil {
		return start, end, fmt.Errorf("--end: %w", err)
	}
	return start, end, nil
}

func (a *app) build(journal *ast.Journal, book *ledger.Book, start, end time.Time) (*envelope.Report, error) {
	return envelope.New(journal, envelope.Options{
		Currency: a.cfg.Currency,
		Start:    start,
		End:      end,
		Today:    a.now(),
		Logger:   a.logger,
		Ledger:   book,
	}).Build()
}

func (a *app) buildReport() (*envelope.Report, error) {
	start, end, err := a.window()
	if err != nil {
		return nil, err
	}
	journal, err := a.loadJournal()
	if err != nil {
		return nil, err
	}
	return a.build(journal, ledger.NewBook(journal), start, end)
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the income summary and the envelope table",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			report, err := a.buildReport()
			if err != nil {
				return err
			}
			return a.renderer().Report(report)
		},
	}
}

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [node]",
		Short: "Print the budget tree, or the subtree at node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			report, err := a.buildReport()
			if err != nil {
				return err
			}
			start := report.Tree.Root()
			if len(args) == 1 {
				id, ok := report.Tree.FindNode(args[0])
				if !ok {
					return fmt.Errorf("node %q not found", args[0])
				}
				start = id
			}
			return a.renderer().Tree(report.Tree, start)
		},
	}
}

func (a *app) sankeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sankey [node]",
		Short: "Export the flow graph of a budget node",
		Long: `Export the subtree of a budget node as sankey nodes and edges.
Without a node the latest month bucket of the report window is used,
falling back to the budget-YYYY task bucket of the window's last year.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			report, err := a.buildReport()
			if err != nil {
				return err
			}
			var node string
			if len(args) == 1 {
				node = args[0]
			}
			sankey, err := report.Tree.Sankey(node, report.Window)
			if err != nil {
				return err
			}
			return a.renderer().Sankey(sankey)
		},
	}
}

func (a *app) intervalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intervals [year...]",
		Short: "Show budget minus actual per month bucket for each year",
		RunE: func(_ *cobra.Command, args []string) error {
			years, err := parseYears(args)
			if err != nil {
				return err
			}
			if len(years) == 0 {
				years = []int{a.now().Year()}
			}

			journal, err := a.loadJournal()
			if err != nil {
				return err
			}
			book := ledger.NewBook(journal)

			results := make([]render.YearIntervals, len(years))
			var g errgroup.Group
			for i, year := range years {
				i, year := i, year
				g.Go(func() error {
					start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
					end := time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC)
					report, err := a.build(journal, book, start, end)
					if err != nil {
						return fmt.Errorf("year %d: %w", year, err)
					}
					intervals, err := report.Tree.Intervals(year)
					if err != nil {
						return fmt.Errorf("year %d: %w", year, err)
					}
					results[i] = render.YearIntervals{Year: year, Intervals: intervals}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return a.renderer().Intervals(results)
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer JSON-RPC report requests on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := server.NewServer(a.cfg, a.logger)
			a.logger.Info("serving on stdio", zap.String("version", Version))
			return srv.Serve(cmd.Context(), stdrwc{})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "envelope %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// parseMonth accepts YYYY-MM and YYYY-MM-DD; empty means unset.
func parseMonth(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid month %q, want YYYY-MM", s)
}

func parseYears(args []string) ([]int, error) {
	years := make([]int, 0, len(args))
	for _, arg := range args {
		year, err := strconv.Atoi(arg)
		if err != nil || year < 1 {
			return nil, fmt.Errorf("invalid year %q", arg)
		}
		years = append(years, year)
	}
	return years, nil
}
