package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/chordbook/internal/api"
	"github.com/starford/chordbook/internal/index"
	"github.com/starford/chordbook/internal/lifecycle"
	"github.com/starford/chordbook/internal/logging"
	"github.com/starford/chordbook/internal/pipeline"
	"github.com/starford/chordbook/internal/readiness"
	"github.com/starford/chordbook/internal/songservice"
	"github.com/starford/chordbook/internal/sse"
	"github.com/starford/chordbook/internal/storage"
	"github.com/starford/chordbook/internal/swapclient"
)

// runtime holds the collaborators shared by the HTTP server and the MCP
// server.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	pipe   *pipeline.Pipeline
	gate   *readiness.Gate
	ctrl   *lifecycle.Controller
	songs  *songservice.Service
}

// newApplication applies opts. Without WithLogger, the configured logger
// writes to out.
func newApplication(opts []Option, out io.Writer) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		logger, err := logging.New(out, app.config.App.LogFormat, app.config.App.LogLevel)
		if err != nil {
			return nil, err
		}
		app.logger = logger
	}
	return app, nil
}

// openRuntime prepares the vault, opens and syncs the index and builds
// the pipeline, controller and song service. The caller must Close it.
func openRuntime(cfg *Config, logger *slog.Logger) (*runtime, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	pipe := pipeline.New(logger)
	gate := readiness.New("index", db.Ping, cfg.Readiness)

	ctrlOpts := []lifecycle.Option{
		lifecycle.WithConfig(cfg.Render),
		lifecycle.WithGate(gate),
		lifecycle.WithLogger(logger),
	}
	if cfg.ConvertRemote() {
		client, err := swapclient.New(cfg.Convert)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init convert client: %w", err)
		}
		ctrlOpts = append(ctrlOpts, lifecycle.WithRequester(client))
	} else {
		ctrlOpts = append(ctrlOpts, lifecycle.WithRequester(api.LocalRequester(pipe)))
	}

	var svcOpts []songservice.Option
	if cfg.Vault.ConvertOnSave {
		svcOpts = append(svcOpts, songservice.WithConvertOnSave(pipe))
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		db:     db,
		pipe:   pipe,
		gate:   gate,
		ctrl:   lifecycle.New(pipe, ctrlOpts...),
		songs:  songservice.NewService(store, db, svcOpts...),
	}, nil
}

// Close releases the index.
func (rt *runtime) Close() error {
	return rt.db.Close()
}

// publishRendered runs a content-swapped pass over a fresh container for
// the song at path and broadcasts the pass report and the rendered
// fragment.
func (rt *runtime) publishRendered(ctx context.Context, broker *sse.Broker, path string) {
	song, err := rt.songs.GetSong(ctx, path)
	if err != nil {
		rt.logger.Warn("live render: read song failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}

	doc := lifecycle.NewDocument(api.SongContainer(song.Content, rt.ctrl.Config()))
	report, err := rt.ctrl.Handle(ctx, lifecycle.ContentSwapped, doc)
	if err != nil {
		rt.logger.Warn("live render: pass failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	broker.Publish(sse.Event{Type: sse.TypePass, Data: report})

	var strategy string
	if len(report.Strategies) > 0 {
		strategy = report.Strategies[0]
	}
	broker.PublishRendered(path, doc.String(), strategy, report.Fallbacks > 0)
}
