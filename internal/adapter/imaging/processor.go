// internal/adapter/imaging/processor.go
package imaging

import (
	"errors"
	"fmt"

	"github.com/h2non/bimg"
)

const thumbnailQuality = 80

var errEmptyImage = errors.New("пустое изображение")

// Processor перекодирует изображения через libvips (bimg)
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// EncodeJPEG перекодирует кадр (PNG, WEBP, MJPEG...) в JPEG с заданным качеством
func (p *Processor) EncodeJPEG(data []byte, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	out, err := bimg.NewImage(data).Process(bimg.Options{
		Type:    bimg.JPEG,
		Quality: quality,
	})
	if err != nil {
		return nil, fmt.Errorf("imaging: ошибка кодирования в JPEG: %w", err)
	}
	return out, nil
}

// Thumbnail делает квадратную миниатюру size x size
func (p *Processor) Thumbnail(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	out, err := bimg.NewImage(data).Process(bimg.Options{
		Width:   size,
		Height:  size,
		Crop:    true,
		Gravity: bimg.GravitySmart,
		Type:    bimg.JPEG,
		Quality: thumbnailQuality,
	})
	if err != nil {
		return nil, fmt.Errorf("imaging: ошибка создания миниатюры: %w", err)
	}
	return out, nil
}
