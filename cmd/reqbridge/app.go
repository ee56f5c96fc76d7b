package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	graphadapter "github.com/ericfisherdev/reqbridge/internal/adapter/driven/graph"
	jiraadapter "github.com/ericfisherdev/reqbridge/internal/adapter/driven/jira"
	oauthadapter "github.com/ericfisherdev/reqbridge/internal/adapter/driven/oauth"
	sqliteadapter "github.com/ericfisherdev/reqbridge/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reqbridge/internal/adapter/driven/vitareq"
	"github.com/ericfisherdev/reqbridge/internal/application"
	"github.com/ericfisherdev/reqbridge/internal/config"
	"github.com/ericfisherdev/reqbridge/internal/domain/model"
	"github.com/ericfisherdev/reqbridge/internal/domain/port/driven"
)

// app holds every wired service. Commands build one per invocation.
type app struct {
	cfg          *config.Config
	db           *sqliteadapter.DB
	credentials  *application.CredentialManager
	syncSvc      *application.SyncService
	lookupSvc    *application.LookupService
	requirements *application.RequirementService
}

// newApp loads configuration, opens the database and wires the adapters.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"vitareq_base_url", cfg.VitareqBaseURL,
		"graph_base_url", cfg.GraphBaseURL,
		"secret_key_set", cfg.SecretKey != nil,
		"jira_enabled", cfg.HasJira(),
	)

	// 2. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// 3. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("database ready", "path", db.Path())

	// 4. Wire credential storage.
	secrets := sqliteadapter.NewSecretRepo(db, cfg.SecretKey)
	activeStore := application.NewSecretActiveStore(secrets)
	sessionStore := application.NewSecretSessionStore(secrets)

	// 5. Wire outbound clients.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	tokens := oauthadapter.NewTokenClient(activeStore, oauthadapter.Options{
		TokenURL: cfg.TokenURL,
		Audience: cfg.Audience,
		Tenant:   cfg.Tenant,
		Fallback: oauthadapter.Fallback{
			ClientID:     cfg.FallbackClientID,
			ClientSecret: cfg.FallbackClientSecret,
		},
	})
	source := vitareq.NewClient(cfg.VitareqBaseURL, httpClient)
	graph := graphadapter.NewClient(cfg.GraphBaseURL, cfg.ConnectionID, cfg.GraphToken, httpClient)

	var tracker driven.IssueTracker
	if cfg.HasJira() {
		t, err := jiraadapter.NewTracker(cfg.JiraBaseURL, cfg.JiraEmail, cfg.JiraAPIToken, http.DefaultTransport)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create issue tracker: %w", err)
		}
		tracker = t
	} else {
		slog.Info("no issue tracker configured, browse URLs disabled")
	}

	// 6. Create services.
	principal := model.Principal{
		ExternalID:   cfg.Principal.ExternalID,
		DisplayName:  cfg.Principal.DisplayName,
		UserName:     cfg.Principal.UserName,
		Name:         model.PersonName{FormattedName: cfg.Principal.DisplayName},
		PrimaryEmail: cfg.Principal.Email,
	}
	lookupSvc := application.NewLookupService(graph, tracker)

	return &app{
		cfg:          cfg,
		db:           db,
		credentials:  application.NewCredentialManager(secrets, activeStore, sessionStore, cfg.Tenant),
		syncSvc:      application.NewSyncService(tokens, source, graph, principal),
		lookupSvc:    lookupSvc,
		requirements: application.NewRequirementService(source, tokens, sessionStore, lookupSvc),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
