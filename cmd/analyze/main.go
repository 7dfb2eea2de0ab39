package main

import (
	"SafetyAnalyst/internal/ai"
	"SafetyAnalyst/internal/analysis"
	"SafetyAnalyst/internal/config"
	"SafetyAnalyst/internal/service/image"
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Разовый анализ изображения из командной строки:
//
//	analyze -image site.jpg -mode ppe -details "работа на высоте"
func main() {
	imagePath := flag.String("image", "", "путь к изображению (jpg, png, jpeg)")
	modeName := flag.String("mode", string(analysis.ModeGeneral), "режим анализа: general|ppe")
	details := flag.String("details", "", "дополнительный контекст от пользователя")
	stub := flag.Bool("stub", false, "использовать заглушку вместо OpenAI")
	cfg := config.NewConfig()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	mode, err := analysis.ParseMode(*modeName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var payload *image.Payload
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			sugar.Fatalw("failed to read image file", "path", *imagePath, "error", err)
		}
		payload, err = image.NewPayload(*imagePath, data)
		if err != nil {
			sugar.Fatalw("invalid image", "path", *imagePath, "error", err)
		}
	}

	var client ai.Client
	if *stub {
		client = ai.NewStubClient()
		// заглушке ключ не нужен
		if !cfg.HasCredential() {
			cfg.OpenAI.APIKey = "stub"
		}
	} else {
		client = ai.NewVisionClient(ai.NewOpenAIClient(cfg), sugar)
	}

	res := analysis.New(cfg, client, sugar).Analyze(context.Background(), analysis.Request{
		Mode:        mode,
		Image:       payload,
		ShowDetails: *details != "",
		UserText:    *details,
	})
	if !res.OK() {
		fmt.Fprintln(os.Stderr, res.Display())
		_ = logger.Sync()
		os.Exit(1)
	}
	fmt.Println(res.Text)
}
