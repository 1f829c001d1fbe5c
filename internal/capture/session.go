// Package capture управляет живым потоком камеры пользователя:
// одна сессия владеет не более чем одним потоком и обязана его освободить.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoArmGo/MarketApp/internal/domain"
)

// Quality - фиксированное качество JPEG для снимков с камеры
const Quality = 90

// State - состояние сессии захвата
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Source открывает поток кадров (например, камеру браузера).
// Open блокируется, пока пользователь не выдаст доступ, и возвращает
// domain.ErrPermissionDenied при отказе.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream - активный поток кадров. Close освобождает устройство.
type Stream interface {
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// Encoder кодирует кадр в JPEG
type Encoder interface {
	EncodeJPEG(data []byte, quality int) ([]byte, error)
}

// Session - сессия захвата одного пользователя.
// Idle -> Requesting -> Streaming -> Idle.
type Session struct {
	source  Source
	encoder Encoder
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	state  State
	stream Stream
	// gen меняется при каждом Start/Stop, чтобы отличать устаревший Open
	gen uint64
	// cancelOpen прерывает ожидающий Open при Stop
	cancelOpen context.CancelFunc
}

// NewSession создает сессию в состоянии Idle
func NewSession(source Source, encoder Encoder, logger *slog.Logger) *Session {
	return &Session{
		source:  source,
		encoder: encoder,
		logger:  logger,
		now:     time.Now,
	}
}

// State возвращает текущее состояние сессии
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start запрашивает поток у источника. Если поток уже активен, он сначала
// останавливается. Пока идет запрос, повторный Start возвращает domain.ErrSourceBusy.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateRequesting:
		s.mu.Unlock()
		return fmt.Errorf("capture: %w", domain.ErrSourceBusy)
	case StateStreaming:
		if err := s.releaseLocked(); err != nil {
			s.logger.Warn("failed to close previous capture stream", "error", err)
		}
	}
	s.gen++
	gen := s.gen
	s.state = StateRequesting
	openCtx, cancel := context.WithCancel(ctx)
	s.cancelOpen = cancel
	s.mu.Unlock()
	defer cancel()

	start := time.Now()
	stream, err := s.source.Open(openCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		// сессию остановили, пока ждали доступ к камере
		if stream != nil {
			_ = stream.Close()
		}
		if err != nil {
			return classifyOpenError(err)
		}
		return fmt.Errorf("capture: запрос камеры отменен: %w", domain.ErrDeviceError)
	}

	s.cancelOpen = nil
	if err != nil {
		s.state = StateIdle
		s.logger.Warn("capture stream request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return classifyOpenError(err)
	}

	s.stream = stream
	s.state = StateStreaming
	s.logger.Info("capture stream started", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Capture снимает один кадр с активного потока и кодирует его в JPEG.
// Поток остается открытым.
func (s *Session) Capture(ctx context.Context) (domain.Payload, error) {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return domain.Payload{}, fmt.Errorf("capture: %w", domain.ErrSourceNotActive)
	}
	stream := s.stream
	s.mu.Unlock()

	frame, err := stream.Frame(ctx)
	if err != nil {
		if !s.owns(stream) {
			return domain.Payload{}, fmt.Errorf("capture: поток остановлен во время снимка: %w", domain.ErrSourceNotActive)
		}
		return domain.Payload{}, fmt.Errorf("capture: не удалось получить кадр: %w: %w", domain.ErrDeviceError, err)
	}

	data, err := s.encoder.EncodeJPEG(frame, Quality)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("capture: не удалось закодировать кадр: %w: %w", domain.ErrDeviceError, err)
	}

	return domain.Payload{
		Filename:    fmt.Sprintf("selfie_%d.jpg", s.now().UnixMilli()),
		ContentType: "image/jpeg",
		Data:        data,
	}, nil
}

// Stop освобождает поток и переводит сессию в Idle. Идемпотентен.
// Ожидающий запрос камеры прерывается.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancelOpen != nil {
		s.cancelOpen()
		s.cancelOpen = nil
	}
	return s.releaseLocked()
}

func (s *Session) owns(stream Stream) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStreaming && s.stream == stream
}

func (s *Session) releaseLocked() error {
	prev := s.state
	s.state = StateIdle
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	s.logger.Info("capture stream released", "previous_state", prev.String())
	if err != nil {
		return fmt.Errorf("capture: ошибка закрытия потока: %w", err)
	}
	return nil
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrDeviceError),
		errors.Is(err, domain.ErrSourceBusy):
		return fmt.Errorf("capture: %w", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("capture: камера не ответила: %w: %w", domain.ErrDeviceError, err)
	default:
		return fmt.Errorf("capture: %w: %w", domain.ErrDeviceError, err)
	}
}
