package ai

import "context"

// StubClient заглушка, которая не делает реальных запросов
type StubClient struct {
	Answer string
}

func NewStubClient() *StubClient { return &StubClient{Answer: "**테스트 응답** 요청이 접수되었습니다"} }

func (c *StubClient) SendRequest(ctx context.Context, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.Answer, nil
}
