package analysis

import (
	"SafetyAnalyst/internal/ai"
	"SafetyAnalyst/internal/config"
	"SafetyAnalyst/internal/metrics"
	"SafetyAnalyst/internal/service/image"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request одно нажатие «анализировать». UserText учитывается только при включённом ShowDetails.
type Request struct {
	Mode        Mode
	Image       *image.Payload
	ShowDetails bool
	UserText    string
}

// Assembler собирает запрос к модели из режима, изображения и текста пользователя
// и превращает ответ в Result. Состояния между вызовами не хранит.
type Assembler struct {
	cfg    *config.Config
	client ai.Client
	logger *zap.SugaredLogger
}

func New(cfg *config.Config, client ai.Client, logger *zap.SugaredLogger) *Assembler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Assembler{cfg: cfg, client: client, logger: logger}
}

// Analyze выполняет ровно один вызов клиента либо ни одного, если нет ключа API или изображения.
// Никогда не паникует наружу.
func (a *Assembler) Analyze(ctx context.Context, req Request) (res Result) {
	res = Result{RequestID: uuid.NewString(), Mode: req.Mode}
	log := a.logger.With("request_id", res.RequestID, "mode", string(req.Mode))

	switch {
	// Режим проверяется первым: метка mode в метриках только из известных значений.
	case !req.Mode.Valid():
		res.Err = fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
		log.Warnw("Неизвестный режим анализа")
		return res
	case !a.cfg.HasCredential():
		res.Err = ErrMissingCredential
		metrics.AnalysesTotal.WithLabelValues(string(req.Mode), metrics.OutcomeMissingCredential).Inc()
		log.Warnw("Ключ API не задан, запрос не отправлен")
		return res
	case req.Image.Len() == 0:
		res.Err = ErrMissingInput
		metrics.AnalysesTotal.WithLabelValues(string(req.Mode), metrics.OutcomeMissingInput).Inc()
		log.Warnw("Изображение не загружено, запрос не отправлен")
		return res
	}

	userText := ""
	if req.ShowDetails {
		userText = req.UserText
	}
	prompt := ComposePrompt(req.Mode, userText)
	dataURL := ImageDataURL(req.Image.Bytes())

	if a.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, a.cfg.RequestTimeout, errors.New("inference request timeout"))
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			log.Errorw("Паника при вызове модели", "panic", p)
			res.Text = ""
			res.Err = &RemoteError{Err: fmt.Errorf("panic: %v", p)}
			metrics.AnalysesTotal.WithLabelValues(string(req.Mode), metrics.OutcomeRemoteFailure).Inc()
		}
	}()

	log.Infow("Отправка изображения на анализ",
		"filename", req.Image.Filename(),
		"bytes", req.Image.Len(),
		"with_context", strings.TrimSpace(userText) != "",
	)
	start := time.Now()
	text, err := a.client.SendRequest(ctx, prompt, dataURL)
	metrics.AnalysisDuration.WithLabelValues(string(req.Mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && ctx.Err() != nil && !errors.Is(err, cause) {
			err = fmt.Errorf("%w (%v)", err, cause)
		}
		res.Err = &RemoteError{Err: err}
		metrics.AnalysesTotal.WithLabelValues(string(req.Mode), metrics.OutcomeRemoteFailure).Inc()
		log.Errorw("Анализ не выполнен", "error", err)
		return res
	}

	res.Text = text
	metrics.AnalysesTotal.WithLabelValues(string(req.Mode), metrics.OutcomeSuccess).Inc()
	log.Infow("Анализ выполнен", "duration", time.Since(start).String(), "chars", len(text))
	return res
}
