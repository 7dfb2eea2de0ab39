package analysis

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Mode выбирает шаблон инструкции для модели.
type Mode string

const (
	ModeGeneral      Mode = "general" // общий анализ безопасности
	ModePPEChecklist Mode = "ppe"     // проверка СИЗ по чек-листу (TBM)
)

// Modes в порядке отображения.
var Modes = []Mode{ModeGeneral, ModePPEChecklist}

// ContextDelimiter отделяет шаблон от дополнительного текста пользователя.
const ContextDelimiter = "\n\nUser-supplied additional context:\n"

// ImageMediaType тег data URL. Всегда jpeg, независимо от формата загрузки.
const ImageMediaType = "image/jpeg"

const generalTemplate = "당신은 매우 지식이 풍부한 안전관리 이미지 분석 전문가입니다. " +
	"다음 이미지를 자세히 검토하는 것이 당신의 임무입니다. " +
	"이미지가 묘사하는 것에 대한 안전관리 규정에 의거한 정확한 설명을 제공하세요. " +
	"주요 요소와 그 중요성을 강조하고, 분석 결과를 명확하고 잘 구조화된 마크다운 형식으로 제시하세요. " +
	"해당되는 경우, 설명을 향상시키기 위해 관련 안전관리 용어를 포함하세요. " +
	"독자가 안전에 대한 기본적인 이해를 가지고 있다고 가정합니다." +
	"짧게 설명하는 굵은 글씨로 자세한 이미지 캡션을 생성하세요."

const ppeChecklistTemplate = "당신은 매우 지식이 풍부한 안전관리 이미지 분석 전문가입니다. " +
	"이미지를 바탕으로 착용하고 있는 안전 장비를 식별하고, 정보통신 공사 표준 안전 장비 체크리스트와 비교하는 것이 당신의 임무입니다. " +
	"올바르게 착용한 장비는 각각 나열하고, 누락되거나 제대로 사용되지 않은 장비가 있으면 식별해 주세요 ." +
	"작업자가 안전 규정을 완전히 준수하려면 어떤 조치를 취해야 하는지 추천해 주세요" +
	"주요 요소와 그 중요성을 강조하고, 분석 결과를 명확하고 잘 구조화된 마크다운 형식으로 제시하세요. " +
	"해당되는 경우, 설명을 향상시키기 위해 관련 안전관리 용어를 포함하세요. 한글로 답해주세요 " +
	"독자가 안전에 대한 기본적인 이해를 가지고 있다고 가정합니다." +
	"짧게 설명하는 굵은 글씨로 자세한 이미지 캡션을 생성하세요." +
	"어떤 작업을 하는지 아래 추가정보를 활용해 작업에 맞는 안전 장비를 우선 고려해주세요"

// ParseMode разбирает режим из строки (регистр и пробелы игнорируются).
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) Valid() bool {
	return m == ModeGeneral || m == ModePPEChecklist
}

// Title заголовок режима для интерфейса.
func (m Mode) Title() string {
	switch m {
	case ModeGeneral:
		return "숨은 안전 찾기"
	case ModePPEChecklist:
		return "TBM Helper"
	default:
		return ""
	}
}

// Template возвращает шаблон инструкции режима; пустая строка для неизвестного режима.
func Template(m Mode) string {
	switch m {
	case ModeGeneral:
		return generalTemplate
	case ModePPEChecklist:
		return ppeChecklistTemplate
	default:
		return ""
	}
}

// ComposePrompt добавляет к шаблону текст пользователя, если он не пустой после trim.
// Сам текст вставляется как есть, без экранирования.
func ComposePrompt(m Mode, userText string) string {
	prompt := Template(m)
	if strings.TrimSpace(userText) == "" {
		return prompt
	}
	return prompt + ContextDelimiter + userText
}

// ImageDataURL кодирует изображение в data URL для запроса к модели.
func ImageDataURL(data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", ImageMediaType, base64.StdEncoding.EncodeToString(data))
}
