package ai

import "context"

// Client интерфейс для взаимодействия с AI. Все реализации должны быть взаимозаменяемыми.
// imageURL: data URL или http(s) URL изображения.
type Client interface {
	SendRequest(ctx context.Context, text string, imageURL string) (string, error)
}
