package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brmlabs/renewal-calendar/internal/blob"
	"github.com/brmlabs/renewal-calendar/internal/common"
	"github.com/brmlabs/renewal-calendar/internal/export"
	"github.com/brmlabs/renewal-calendar/internal/ingest"
	"github.com/brmlabs/renewal-calendar/internal/llm/openrouter"
	"github.com/brmlabs/renewal-calendar/internal/mail"
	"github.com/brmlabs/renewal-calendar/internal/ocr"
	"github.com/brmlabs/renewal-calendar/internal/repository"
	"github.com/brmlabs/renewal-calendar/internal/server"
	"github.com/brmlabs/renewal-calendar/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file; env vars apply first")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Record store
	db, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		DialTimeout: cfg.Database.DialTimeout,
	}, log)
	if err != nil {
		log.Error("db open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	repo := repository.NewContractRepository(db, cfg.Database.DSN, log)

	// Blob store
	blobs, err := blob.NewStore(cfg.Uploads.Dir, log)
	if err != nil {
		log.Error("blob store init failed", "error", err)
		os.Exit(1)
	}

	// Extraction pipeline
	textExtractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, log)
	fieldExtractor := openrouter.NewClient(openrouter.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, log)

	sessions := func(ctx context.Context) (ingest.RecordSession, error) {
		return repo.Session(ctx)
	}
	orchestrator := ingest.NewOrchestrator(log, blobs, sessions, textExtractor, fieldExtractor, cfg.LLM.Timeout, cfg.Ingest.Workers)

	// Optional inbox watcher
	if cfg.Uploads.InboxDir != "" {
		err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Dir:         cfg.Uploads.InboxDir,
			InitialScan: true,
		}, orchestrator, log)
		if err != nil {
			log.Error("watcher start failed", "dir", cfg.Uploads.InboxDir, "error", err)
			os.Exit(1)
		}
	}

	// HTTP surface
	mailer := mail.NewSender(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		UseTLS:   cfg.SMTP.UseTLS,
	}, log)
	contracts := server.NewContractHandler(repo, blobs, orchestrator, textExtractor, export.NewService(log), log)
	cal := server.NewCalendarHandler(repo, mailer, log)
	router := server.NewRouter(contracts, cal, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	log.Info("stopped")
}
