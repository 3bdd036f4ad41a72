// One-shot WestManga sync runner, meant for cron or manual backfills.
//
//	sync -page 1 -limit 25 -mode full
//	sync -all -mode chapters
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/cecepns/komiknesia-sub000/internal/catalog"
	"github.com/cecepns/komiknesia-sub000/internal/config"
	syncengine "github.com/cecepns/komiknesia-sub000/internal/sync"
	"github.com/cecepns/komiknesia-sub000/internal/westmanga"
	"github.com/cecepns/komiknesia-sub000/pkg/database"
)

func main() {
	var (
		page    = flag.Int("page", 1, "remote page to start from")
		limit   = flag.Int("limit", 25, "items per page (1-100)")
		modeStr = flag.String("mode", "", "sync mode: manga, chapters or full (default from config)")
		all     = flag.Bool("all", false, "walk every remote page starting at -page")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	if *modeStr == "" {
		*modeStr = cfg.Sync.Mode
	}
	mode, err := syncengine.ParseMode(*modeStr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid mode")
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote := westmanga.New(westmanga.Config{
		BaseURL:           cfg.WestManga.BaseURL,
		Timeout:           cfg.WestManga.Timeout(),
		RequestsPerSecond: cfg.WestManga.RequestsPerSecond,
		Burst:             cfg.WestManga.Burst,
	}, log)
	engine := syncengine.NewEngine(remote, catalog.NewRepo(db), nil, cfg.Sync.Workers, log)

	totals := syncengine.Result{}
	for p := *page; ; p++ {
		res, err := engine.SyncPage(ctx, p, *limit, mode)
		if err != nil {
			log.Fatal().Err(err).Int("page", p).Msg("sync failed")
		}
		totals.Synced += res.Synced
		totals.Updated += res.Updated
		totals.Errors += res.Errors
		totals.Total += res.Total
		totals.ChaptersSynced += res.ChaptersSynced
		totals.ImagesSynced += res.ImagesSynced

		if !*all || !res.HasMore || ctx.Err() != nil {
			break
		}
	}

	log.Info().
		Int("synced", totals.Synced).Int("updated", totals.Updated).
		Int("errors", totals.Errors).Int("total", totals.Total).
		Int("chapters", totals.ChaptersSynced).Int("images", totals.ImagesSynced).
		Msg("sync finished")
}
