package httptransport

import (
	"SafetyAnalyst/internal/analysis"
	"SafetyAnalyst/internal/service/image"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Поля multipart-формы.
const (
	fieldImage       = "image"
	fieldShowDetails = "show_details"
	fieldDetails     = "details"
)

// multipartOverhead запас на заголовки и текстовые поля формы сверх размера файла.
const multipartOverhead = 1 << 20

type analyzeHandler struct {
	analyzer       Analyzer
	logger         *zap.SugaredLogger
	maxUploadBytes int64
	hasCredential  bool
}

// AnalysisResponse тело ответа анализа: Result при успехе, Error при ошибке.
type AnalysisResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Mode      string `json:"mode"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ModeInfo описание режима для клиента.
type ModeInfo struct {
	Mode  string `json:"mode"`
	Title string `json:"title"`
}

func (h *analyzeHandler) handleModes(c *gin.Context) {
	out := make([]ModeInfo, 0, len(analysis.Modes))
	for _, m := range analysis.Modes {
		out = append(out, ModeInfo{Mode: string(m), Title: m.Title()})
	}
	c.JSON(http.StatusOK, out)
}

// handleAnalyze: один POST соответствует одному нажатию «анализировать».
// Без изображения запрос к модели не формируется.
func (h *analyzeHandler) handleAnalyze(c *gin.Context) {
	mode, err := analysis.ParseMode(c.Param("mode"))
	if err != nil {
		c.JSON(http.StatusNotFound, AnalysisResponse{Mode: c.Param("mode"), Error: analysis.Result{Err: err}.Display()})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	payload, status, err := h.readImage(c)
	if err != nil {
		h.logger.Warnw("Не удалось прочитать изображение", "mode", mode, "error", err)
		c.JSON(status, AnalysisResponse{Mode: string(mode), Error: err.Error()})
		return
	}
	if payload != nil {
		if w, hgt, format, derr := payload.Dimensions(); derr != nil {
			h.logger.Debugw("Не удалось прочитать заголовок изображения", "filename", payload.Filename(), "error", derr)
		} else {
			h.logger.Debugw("Изображение загружено", "filename", payload.Filename(), "width", w, "height", hgt, "format", format)
		}
	}

	// Пустое поле означает «детали включены», как переключатель формы по умолчанию.
	showDetails := true
	if v := c.PostForm(fieldShowDetails); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			h.logger.Warnw("Некорректное значение show_details", "mode", mode, "value", v)
			c.JSON(http.StatusBadRequest, AnalysisResponse{Mode: string(mode), Error: fmt.Sprintf("show_details 값이 올바르지 않습니다: %q", v)})
			return
		}
		showDetails = b
	}

	res := h.analyzer.Analyze(c.Request.Context(), analysis.Request{
		Mode:        mode,
		Image:       payload,
		ShowDetails: showDetails,
		UserText:    c.PostForm(fieldDetails),
	})

	resp := AnalysisResponse{RequestID: res.RequestID, Mode: string(mode)}
	if res.OK() {
		resp.Result = res.Text
	} else {
		resp.Error = res.Display()
	}
	c.JSON(statusFor(res), resp)
}

// readImage возвращает nil payload без ошибки, если файл не приложен: это «нет загрузки».
func (h *analyzeHandler) readImage(c *gin.Context) (*image.Payload, int, error) {
	file, header, err := c.Request.FormFile(fieldImage)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, http.StatusOK, nil
		case errors.As(err, &maxErr):
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("이미지 크기가 너무 큽니다 (최대 %d 바이트)", h.maxUploadBytes)
		default:
			return nil, http.StatusBadRequest, fmt.Errorf("업로드 양식을 읽을 수 없습니다: %w", err)
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("이미지를 읽을 수 없습니다: %w", err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("이미지 크기가 너무 큽니다 (최대 %d 바이트)", h.maxUploadBytes)
	}

	payload, err := image.NewPayload(header.Filename, data)
	switch {
	case errors.Is(err, image.ErrEmptyImage):
		return nil, http.StatusOK, nil
	case errors.Is(err, image.ErrUnsupportedExtension):
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("jpg, png, jpeg 형식만 지원합니다: %s", header.Filename)
	case err != nil:
		return nil, http.StatusBadRequest, err
	}
	return payload, http.StatusOK, nil
}

func statusFor(res analysis.Result) int {
	var remote *analysis.RemoteError
	switch {
	case res.OK():
		return http.StatusOK
	case errors.Is(res.Err, analysis.ErrMissingCredential):
		return http.StatusServiceUnavailable
	case errors.Is(res.Err, analysis.ErrMissingInput):
		return http.StatusBadRequest
	case errors.Is(res.Err, analysis.ErrUnknownMode):
		return http.StatusNotFound
	case errors.As(res.Err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
