package main

import (
	"SafetyAnalyst/internal/ai"
	"SafetyAnalyst/internal/analysis"
	"SafetyAnalyst/internal/config"
	httptransport "SafetyAnalyst/internal/transport/http"
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// HTTP-сервис анализа фотографий рабочих мест: два режима (общий и чек-лист СИЗ).
func main() {
	cfg := config.NewConfig()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"addr", cfg.HTTP.BindAddr,
		"requestTimeout", cfg.RequestTimeout.String(),
	)
	// Без ключа сервер всё равно стартует: каждый анализ вернёт блокирующее сообщение.
	if err := cfg.Validate(); err != nil {
		sugar.Errorw("OpenAI API key is missing; analyses are disabled", "error", err)
	}

	client := ai.NewVisionClient(ai.NewOpenAIClient(cfg), sugar)
	assembler := analysis.New(cfg, client, sugar)

	engine, err := httptransport.Build(httptransport.Options{
		Config:   cfg,
		Logger:   sugar,
		Analyzer: assembler,
	})
	if err != nil {
		sugar.Errorw("failed to build router", "error", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httptransport.NewServer(cfg.HTTP.BindAddr, engine, cfg.RequestTimeout, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("failed to start http server", "error", err)
		return
	}

	<-ctx.Done()
	if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
		sugar.Warnw("http server stop error", "error", err)
	}
	sugar.Infow("server stopped")
}
