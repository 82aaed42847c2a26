package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juev/envelope/internal/ast"
	"github.com/juev/envelope/internal/budget"
	"github.com/juev/envelope/internal/config"
	"github.com/juev/envelope/internal/envelope"
	"github.com/juev/envelope/internal/include"
	"github.com/juev/envelope/internal/ledger"
	"github.com/juev/envelope/internal/render"
)

const (
	MethodReport    = "envelope/report"
	MethodSankey    = "envelope/sankey"
	MethodIntervals = "envelope/intervals"
	MethodBatch     = "envelope/batch"
	MethodShutdown  = "shutdown"
	MethodExit      = "exit"
)

var errShuttingDown = fmt.Errorf("%w: server is shutting down", jsonrpc2.ErrInvalidRequest)

type Server struct {
	logger *zap.Logger
	client protocol.Client
	conn   jsonrpc2.Conn
	now    func() time.Time

	config   config.Config
	configMu sync.RWMutex

	mu       sync.Mutex
	shutdown bool
}

func NewServer(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger: logger,
		config: config.Normalize(cfg),
		now:    time.Now,
	}
}

func (s *Server) SetClient(client protocol.Client) {
	s.client = client
}

func (s *Server) SetConfig(cfg config.Config) {
	s.configMu.Lock()
	s.config = config.Normalize(cfg)
	s.configMu.Unlock()
}

func (s *Server) getConfig() config.Config {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// Serve answers requests read from rwc until the peer disconnects or an
// exit notification arrives.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)

	s.conn = conn
	s.SetClient(protocol.ClientDispatcher(conn, s.logger))

	conn.Go(ctx, s.Handler())

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
	}
	return conn.Err()
}

func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("request", zap.String("method", req.Method()))

		switch req.Method() {
		case MethodShutdown:
			s.mu.Lock()
			s.shutdown = true
			s.mu.Unlock()
			return reply(ctx, nil, nil)
		case MethodExit:
			if s.conn != nil {
				return s.conn.Close()
			}
			return nil
		case MethodReport, MethodSankey, MethodIntervals, MethodBatch:
		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}

		if s.isShutdown() {
			return reply(ctx, nil, errShuttingDown)
		}

		settings, err := s.decodeParams(req.Params())
		if err != nil {
			return reply(ctx, nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err))
		}

		var result interface{}
		switch req.Method() {
		case MethodReport:
			result, err = s.report(ctx, settings)
		case MethodSankey:
			result, err = s.sankey(ctx, settings)
		case MethodIntervals:
			result, err = s.intervals(ctx, settings)
		case MethodBatch:
			result, err = s.batch(ctx, settings)
		}
		if err != nil {
			s.logger.Error("request failed", zap.String("method", req.Method()), zap.Error(err))
		}
		return reply(ctx, result, err)
	}
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) decodeParams(raw json.RawMessage) (requestSettings, error) {
	base := defaultRequestSettings(s.getConfig())
	if len(raw) == 0 || string(raw) == "null" {
		return normalizeRequestSettings(base), nil
	}

	var params interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return base, err
	}
	return parseSettingsFromRaw(base, params)
}

// source loads the journal a request refers to and wraps it in a book
// that concurrent builds can share.
type source struct {
	journal *ast.Journal
	book    *ledger.Book
}

func (s *Server) load(settings requestSettings) (*source, error) {
	if settings.File == "" && settings.Content == "" {
		return nil, fmt.Errorf("%w: no journal file or content", jsonrpc2.ErrInvalidParams)
	}

	loader := include.NewLoader()
	loader.SetLimits(settings.Limits)

	journal, _, err := envelope.LoadJournal(loader, settings.File, settings.Content, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err)
	}
	return &source{journal: journal, book: ledger.NewBook(journal)}, nil
}

func (s *Server) build(ctx context.Context, src *source, settings requestSettings) (*envelope.Report, error) {
	today := settings.Today
	if today.IsZero() {
		today = s.now()
	}

	report, err := envelope.New(src.journal, envelope.Options{
		Currency: settings.Currency,
		Start:    settings.Start,
		End:      settings.End,
		Today:    today,
		Logger:   s.logger,
		Ledger:   src.book,
	}).Build()
	if err != nil {
		return nil, err
	}

	s.forward(ctx, report)
	return report, nil
}

// forward sends report warnings and dropped directives to the client.
func (s *Server) forward(ctx context.Context, report *envelope.Report) {
	if s.client == nil {
		return
	}
	for _, w := range report.Warnings {
		_ = s.client.LogMessage(ctx, &protocol.LogMessageParams{
			Type:    protocol.MessageTypeWarning,
			Message: w.String(),
		})
	}
	for _, err := range report.Errors {
		_ = s.client.LogMessage(ctx, &protocol.LogMessageParams{
			Type:    protocol.MessageTypeError,
			Message: err.Error(),
		})
	}
}

func (s *Server) buildOne(ctx context.Context, settings requestSettings) (*envelope.Report, error) {
	src, err := s.load(settings)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, src, settings)
}

func (s *Server) report(ctx context.Context, settings requestSettings) (interface{}, error) {
	report, err := s.buildOne(ctx, settings)
	if err != nil {
		return nil, err
	}
	return render.NewReportView(report), nil
}

func (s *Server) sankey(ctx context.Context, settings requestSettings) (interface{}, error) {
	report, err := s.buildOne(ctx, settings)
	if err != nil {
		return nil, err
	}
	result, err := report.Tree.Sankey(settings.Node, report.Window)
	if errors.Is(err, budget.ErrNodeNotFound) {
		return nil, fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err)
	}
	return result, err
}

func (s *Server) intervals(ctx context.Context, settings requestSettings) (interface{}, error) {
	report, err := s.buildOne(ctx, settings)
	if err != nil {
		return nil, err
	}

	years := settings.Years
	if len(years) == 0 {
		years = []int{report.Window.End.Year()}
	}

	result := make([]budget.Interval, 0)
	for _, year := range years {
		series, err := report.Tree.Intervals(year)
		if err != nil {
			return nil, err
		}
		result = append(result, series...)
	}
	return result, nil
}

type batchEntry struct {
	Year   int               `json:"year"`
	Report render.ReportView `json:"report"`
}

// batch builds one report per requested year. Every build owns its tree
// and shares the parsed journal.
func (s *Server) batch(ctx context.Context, settings requestSettings) (interface{}, error) {
	if len(settings.Years) == 0 {
		return nil, fmt.Errorf("%w: years is required", jsonrpc2.ErrInvalidParams)
	}

	src, err := s.load(settings)
	if err != nil {
		return nil, err
	}

	entries := make([]batchEntry, len(settings.Years))
	g, gctx := errgroup.WithContext(ctx)
	for i, year := range settings.Years {
		i, year := i, year
		g.Go(func() error {
			yearSettings := settings
			yearSettings.Start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			yearSettings.End = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

			report, err := s.build(gctx, src, yearSettings)
			if err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
			entries[i] = batchEntry{Year: year, Report: render.NewReportView(report)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
