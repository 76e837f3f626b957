package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eln-lab/eln-backend/services/api/auth"
	"github.com/eln-lab/eln-backend/services/api/blob"
	"github.com/eln-lab/eln-backend/services/api/config"
	"github.com/eln-lab/eln-backend/services/api/db"
	httpserver "github.com/eln-lab/eln-backend/services/api/http"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("configuration error", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("database connection failed", "err", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalw("schema migration failed", "err", err)
	}

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("blob store init failed", "err", err)
	}
	log.Infow("blob store ready", "driver", blobs.Driver())

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTExpiryMinutes)*time.Minute)

	var authn auth.Authenticator
	if cfg.LDAPURL != "" {
		authn = &auth.LDAPAuthenticator{
			URL:      cfg.LDAPURL,
			BaseDN:   cfg.LDAPBaseDN,
			UserAttr: cfg.LDAPUserAttr,
		}
		log.Infow("using LDAP authentication", "url", cfg.LDAPURL)
	} else {
		authn = auth.StaticAuthenticator(cfg.DevUsers)
		log.Warnw("using static dev user list, do not run this in production")
	}

	server := httpserver.New(cfg, store, blobs, issuer, authn, log)

	log.Infow("starting API server", "addr", cfg.ListenAddr())
	if err := server.Run(ctx); err != nil {
		log.Fatalw("server error", "err", err)
	}
	log.Infow("server stopped")
}
