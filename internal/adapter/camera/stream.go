package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errStreamClosed = errors.New("поток камеры закрыт")

// wsStream хранит последний кадр, полученный по WebSocket
type wsStream struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu      sync.Mutex
	latest  []byte
	readErr error

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

func newWSStream(conn *websocket.Conn, logger *slog.Logger) *wsStream {
	s := &wsStream{
		conn:   conn,
		logger: logger,
		first:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *wsStream) readLoop() {
	defer close(s.done)

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("camera stream read stopped", "error", err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		s.mu.Lock()
		s.latest = data
		s.mu.Unlock()
		s.firstOnce.Do(func() { close(s.first) })
	}
}

// Frame возвращает копию последнего кадра, дожидаясь первого при необходимости
func (s *wsStream) Frame(ctx context.Context) ([]byte, error) {
	select {
	case <-s.first:
	case <-s.done:
		return nil, s.closedErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case <-s.done:
		return nil, s.closedErr()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	frame := make([]byte, len(s.latest))
	copy(frame, s.latest)
	return frame, nil
}

// Close закрывает соединение и дожидается завершения чтения
func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "capture stopped")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		err = s.conn.Close()
		<-s.done
		s.logger.Info("camera stream closed")
	})
	return err
}

func (s *wsStream) closedErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return fmt.Errorf("%w: %w", errStreamClosed, s.readErr)
	}
	return errStreamClosed
}
