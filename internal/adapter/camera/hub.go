// internal/adapter/camera/hub.go
package camera

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GoArmGo/MarketApp/internal/capture"
	"github.com/GoArmGo/MarketApp/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// кадр не может быть больше загружаемого файла (плюс запас на заголовки)
	maxFrameSize = domain.MaxUploadSize + 64*1024
	closeTimeout = time.Second
)

type openResult struct {
	stream *wsStream
	err    error
}

// waiter - ожидающий запрос камеры
type waiter struct {
	ch  chan openResult
	ctx context.Context
}

// Hub принимает потоки кадров с камеры браузера по WebSocket.
// Браузер подключается к ServeWS только после того, как сессия запросила камеру.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	waiters map[string]waiter
}

// NewHub создает новый Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		waiters: make(map[string]waiter),
	}
}

// Source возвращает источник кадров пользователя для capture.Session
func (h *Hub) Source(ownerID string) capture.Source {
	return &source{hub: h, ownerID: ownerID}
}

// pending сообщает, ждет ли сессия пользователя подключения камеры
func (h *Hub) pending(ownerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.waiters[ownerID]
	return ok
}

// Deny сообщает ожидающей сессии, что пользователь не дал доступ к камере
func (h *Hub) Deny(ownerID string) bool {
	ch, ok := h.take(ownerID)
	if !ok {
		return false
	}
	ch <- openResult{err: domain.ErrPermissionDenied}
	h.logger.Info("camera permission denied", "owner_id", ownerID)
	return true
}

// ServeWS принимает WebSocket-соединение с бинарными кадрами от браузера
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, ownerID string) {
	ch, ok := h.take(ownerID)
	if !ok {
		h.logger.Warn("camera connection without pending request", "owner_id", ownerID)
		http.Error(w, "Камера не запрашивалась", http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой
		h.logger.Error("failed to upgrade camera connection", "owner_id", ownerID, "error", err)
		ch <- openResult{err: fmt.Errorf("camera: %w: %w", domain.ErrDeviceError, err)}
		return
	}
	conn.SetReadLimit(maxFrameSize)

	h.logger.Info("camera connected", "owner_id", ownerID, "remote_addr", r.RemoteAddr)
	ch <- openResult{stream: newWSStream(conn, h.logger.With("owner_id", ownerID))}
}

func (h *Hub) take(ownerID string) (chan openResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.waiters[ownerID]
	if ok {
		delete(h.waiters, ownerID)
	}
	return w.ch, ok
}

type source struct {
	hub     *Hub
	ownerID string
}

// Open ждет, пока браузер подключит камеру или откажет в доступе
func (s *source) Open(ctx context.Context) (capture.Stream, error) {
	h := s.hub
	ch := make(chan openResult, 1)

	h.mu.Lock()
	if prev, busy := h.waiters[s.ownerID]; busy {
		if prev.ctx.Err() == nil {
			h.mu.Unlock()
			return nil, fmt.Errorf("camera: %w", domain.ErrSourceBusy)
		}
		// прежний запрос уже отменен, но еще не успел убрать себя
		delete(h.waiters, s.ownerID)
		prev.ch <- openResult{err: fmt.Errorf("camera: %w: %w", domain.ErrDeviceError, prev.ctx.Err())}
	}
	h.waiters[s.ownerID] = waiter{ch: ch, ctx: ctx}
	h.mu.Unlock()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.stream, nil
	case <-ctx.Done():
	}

	h.mu.Lock()
	if h.waiters[s.ownerID].ch == ch {
		delete(h.waiters, s.ownerID)
		h.mu.Unlock()
		return nil, fmt.Errorf("camera: камера не подключилась: %w: %w", domain.ErrDeviceError, ctx.Err())
	}
	h.mu.Unlock()

	// ожидание уже забрал ServeWS или Deny - дожидаемся результата и освобождаем поток
	if res := <-ch; res.stream != nil {
		_ = res.stream.Close()
	}
	return nil, fmt.Errorf("camera: камера не подключилась: %w: %w", domain.ErrDeviceError, ctx.Err())
}
