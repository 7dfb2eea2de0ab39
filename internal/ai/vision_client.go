package ai

import (
	"SafetyAnalyst/internal/config"
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	// Model фиксированная модель для анализа изображений.
	Model = openai.ChatModelGPT4o
	// MaxOutputTokens бюджет токенов ответа.
	MaxOutputTokens = 1200
)

// ErrEmptyResponse модель вернула ответ без вариантов (choices).
var ErrEmptyResponse = errors.New("openai: response contains no choices")

// VisionClient отправляет текст и картинку в OpenAI через Chat Completions.
type VisionClient struct {
	client *openai.Client
	model  openai.ChatModel
	logger *zap.SugaredLogger
}

// NewOpenAIClient создаёт клиента OpenAI из конфигурации. Повторы отключены:
// один запрос анализа означает ровно один вызов API.
func NewOpenAIClient(cfg *config.Config) *openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAI.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	c := openai.NewClient(opts...)
	return &c
}

func NewVisionClient(client *openai.Client, logger *zap.SugaredLogger) *VisionClient {
	return &VisionClient{
		client: client,
		model:  Model,
		logger: logger,
	}
}

func (c *VisionClient) SendRequest(ctx context.Context, text string, imageURL string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(text),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
		MaxTokens: openai.Int(MaxOutputTokens),
	}

	start := time.Now()
	c.logger.Infow("Запрос в OpenAI...", "model", c.model)
	resp, err := c.client.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		c.logger.Errorw("Ошибка ответа OpenAI", "duration", dur.String(), "error", err)
		return "", err
	}
	c.logger.Infow("Ответ OpenAI получен", "duration", dur.String(), "total_tokens", resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
