package domain

import "fmt"

const (
	// MaxUploadSize - максимальный размер загружаемого изображения (10 MiB)
	MaxUploadSize = 10 * 1024 * 1024
)

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/jpg":  {},
	"image/webp": {},
}

// Payload - бинарное содержимое изображения из файла или с камеры
type Payload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (p Payload) Size() int64 {
	return int64(len(p.Data))
}

// Validate проверяет тип и размер до любых сетевых вызовов
func (p Payload) Validate() error {
	if _, ok := allowedContentTypes[p.ContentType]; !ok {
		return fmt.Errorf("%w: недопустимый тип файла %q (разрешены JPG, PNG, WEBP)", ErrValidation, p.ContentType)
	}
	if p.Size() == 0 {
		return fmt.Errorf("%w: пустой файл", ErrValidation)
	}
	if p.Size() > MaxUploadSize {
		return fmt.Errorf("%w: файл слишком большой (%d байт, максимум %d)", ErrValidation, p.Size(), MaxUploadSize)
	}
	return nil
}
