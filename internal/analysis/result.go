package analysis

import (
	"SafetyAnalyst/internal/config"
	"errors"
)

var (
	ErrMissingCredential = config.ErrMissingCredential
	ErrMissingInput      = errors.New("no image uploaded")
	ErrUnknownMode       = errors.New("unknown analysis mode")
)

// Сообщения для пользователя.
const (
	msgMissingCredential = "유효한 OpenAI API 키를 제공해 주세요."
	msgMissingImage      = "이미지를 업로드해주세요."
	msgMissingTBMImage   = "TBM 이미지를 업로드해주세요."
	msgUnknownMode       = "지원하지 않는 분석 모드입니다."
	remoteErrorPrefix    = "오류 발생: "
)

// RemoteError любая ошибка внешнего вызова модели (сеть, авторизация, лимиты, ответ).
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string { return remoteErrorPrefix + e.Err.Error() }

func (e *RemoteError) Unwrap() error { return e.Err }

// Result итог одного анализа: либо Text, либо Err.
type Result struct {
	RequestID string
	Mode      Mode
	Text      string
	Err       error
}

func (r Result) OK() bool { return r.Err == nil }

// Display возвращает текст для показа пользователю: ответ модели как есть или сообщение об ошибке.
func (r Result) Display() string {
	if r.Err == nil {
		return r.Text
	}
	var remote *RemoteError
	switch {
	case errors.As(r.Err, &remote):
		return remote.Error()
	case errors.Is(r.Err, ErrMissingCredential):
		return msgMissingCredential
	case errors.Is(r.Err, ErrMissingInput):
		if r.Mode == ModePPEChecklist {
			return msgMissingTBMImage
		}
		return msgMissingImage
	case errors.Is(r.Err, ErrUnknownMode):
		return msgUnknownMode
	default:
		return remoteErrorPrefix + r.Err.Error()
	}
}
