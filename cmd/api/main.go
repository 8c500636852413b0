package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bookstudio/api/internal/app"
	"bookstudio/api/internal/cache"
	"bookstudio/api/internal/config"
	"bookstudio/api/internal/dispatch"
	"bookstudio/api/internal/llm"
	"bookstudio/api/internal/revs"
	"bookstudio/api/internal/search"
	"bookstudio/api/internal/snapshot"
	"bookstudio/api/internal/store"
)

func main() {
	cfg := config.Load()
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	storeClient := store.NewClient(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreVersion, log)
	remote := store.NewRemoteStore(storeClient, cfg.ProjectsCollectionID, cfg.ChaptersCollectionID)
	dispatcher := dispatch.New(cfg.GhostwriterWebhook, cfg.BookBinderWebhook, log)
	chat := llm.NewClient(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.AppReferer, log)

	service := app.New(cfg, remote, dispatcher, chat, log)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		chapterCache, err := cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer chapterCache.Close()
		service.UseCache(chapterCache)
		log.Info().Msg("chapter list cache enabled")
	}

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		defer meili.Close()
		service.UseSearch(meili)
		log.Info().Msg("search enabled")
	}

	if err := os.MkdirAll(cfg.RevisionsDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create revisions dir")
	}
	service.UseRevisions(revs.New(cfg.RevisionsDir))

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiver, err := snapshot.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("snapshot storage failed")
		}
		service.UseArchiver(archiver)
		log.Info().Msg("publish snapshots enabled")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.APIToken, log)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Book Studio API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
