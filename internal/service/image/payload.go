package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"slices"
	"strings"
)

// AllowedExtensions расширения, которые принимает форма загрузки.
var AllowedExtensions = []string{"jpg", "png", "jpeg"}

var (
	ErrEmptyImage           = errors.New("image is empty")
	ErrUnsupportedExtension = errors.New("unsupported image extension")
)

// Payload загруженное изображение. Не изменяется после создания и не сохраняется на диск.
type Payload struct {
	data     []byte
	ext      string
	filename string
}

// NewPayload проверяет расширение файла и непустоту данных.
func NewPayload(filename string, data []byte) (*Payload, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if !slices.Contains(AllowedExtensions, ext) {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedExtension, ext, strings.Join(AllowedExtensions, ", "))
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Payload{data: buf, ext: ext, filename: filepath.Base(filename)}, nil
}

// Bytes возвращает копию данных изображения.
func (p *Payload) Bytes() []byte {
	if p == nil {
		return nil
	}
	return slices.Clone(p.data)
}

func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.data)
}

func (p *Payload) Ext() string      { return p.ext }
func (p *Payload) Filename() string { return p.filename }

// Dimensions читает только заголовок изображения. Используется для логов,
// содержимое файла при анализе не проверяется.
func (p *Payload) Dimensions() (width int, height int, format string, err error) {
	if p.Len() == 0 {
		return 0, 0, "", ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(p.data))
	if err != nil {
		return 0, 0, "", err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, format, fmt.Errorf("invalid image size: %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, format, nil
}
