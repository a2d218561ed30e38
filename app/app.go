package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/putto11262002/relay/core"
	"github.com/putto11262002/relay/ws"
)

// App wires the relay together: sqlite-backed stores, the connection
// registry, the relay handler, the websocket hub, and the HTTP server they
// hang off.
type App struct {
	config *Config
	logger *slog.Logger
	db     *core.SQLiteDB
	hub    *ws.Hub
	server *http.Server
}

func New(ctx context.Context, config *Config) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(config.LogLevel)

	db, err := core.OpenSQLiteDB(config.SQLite.File, config.SQLite.Migrations, &core.SQLiteOptions{
		Mode:        "rwc",
		Cache:       "shared",
		JournalMode: "WAL",
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	directory := core.NewSQLiteUserDirectory(db.DB)
	messages := core.NewSQLiteMessageStore(db.DB)
	contacts := core.NewContactSync(directory, logger)

	registry := ws.NewRegistry(logger)
	relay := ws.NewRelay(registry, messages, contacts, logger,
		ws.WithEventTimeout(config.Relay.EventTimeout))
	identifier := ws.NewTokenIdentifier(config.Relay.TokenSecret)
	hub := ws.NewHub(relay, identifier, logger,
		ws.WithAllowedOrigins(config.AllowedOrigins))

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Get("/ws", hub.ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Hostname, config.Port),
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	return &App{
		config: config,
		logger: logger,
		db:     db,
		hub:    hub,
		server: server,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down: no new connections,
// live connections drained by the hub, database closed last.
func (a *App) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(fmt.Sprintf("server shutdown: %v", err))
		}
		a.hub.Close()
		a.db.Close()
	}()

	a.logger.Info("server started", slog.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server exit: %w", err)
	}
	<-done
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if source, _ := a.Value.Any().(*slog.Source); source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}))
}
