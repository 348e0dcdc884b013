package main

import (
	"context"
	"os"
	"strings"

	"phonenorm_backend/internal/countries/broadcast"
	"phonenorm_backend/internal/countries/repository"
	"phonenorm_backend/platform/config"
	"phonenorm_backend/platform/db"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
	"phonenorm_backend/platform/redisclient"
)

// country-import copies a country table into Postgres.
//
//	COUNTRY_IMPORT_FILE     YAML or JSON table to import (default: embedded table)
//	COUNTRY_IMPORT_REPLACE  "true" deletes rules missing from the imported table
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting country table import")

	if !cfg.IsDatabaseEnabled() {
		panic("country-import requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := db.RunMigrations(ctx, cfg); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var loader phone.Loader = phone.EmbeddedLoader{}
	if path := strings.TrimSpace(os.Getenv("COUNTRY_IMPORT_FILE")); path != "" {
		loader = phone.FileLoader{Path: path}
	}

	// Load through phone.Load so the rules are validated before anything is written.
	table, err := phone.Load(ctx, loader)
	if err != nil {
		log.Error("failed to load country table", "source", loader.Name(), "error", err)
		panic("failed to load country table: " + err.Error())
	}
	entries := table.Entries()

	repo := repository.New(pool)
	if strings.EqualFold(os.Getenv("COUNTRY_IMPORT_REPLACE"), "true") {
		if err := repo.ReplaceAll(ctx, entries); err != nil {
			log.Error("failed to replace country rules", "error", err)
			return
		}
	} else {
		imported := 0
		for _, entry := range entries {
			if err := repo.Upsert(ctx, entry); err != nil {
				log.Error("failed to import country rule", "callingCode", entry.CallingCode, "error", err)
				continue
			}
			imported++
		}
		if imported < len(entries) {
			log.Warn("country table partially imported", "imported", imported, "total", len(entries))
		}
	}

	log.Info("country table imported", "source", loader.Name(), "entries", len(entries), "fingerprint", table.Fingerprint())
	announce(ctx, cfg, log, loader.Name())
}

// announce asks running instances that read from postgres to reload.
func announce(ctx context.Context, cfg *config.Config, log *logger.Logger, source string) {
	if !cfg.IsRedisEnabled() {
		return
	}

	client, err := redisclient.New(ctx, cfg)
	if err != nil {
		log.Warn("skipping reload announcement", "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	if err := broadcast.New(client, "country-import", log).Announce(ctx, source, 0); err != nil {
		log.Warn("failed to announce reload", "error", err)
		return
	}
	log.Info("reload announced to running instances")
}
