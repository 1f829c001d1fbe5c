package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/MarketApp/internal/adapter/camera"
	"github.com/GoArmGo/MarketApp/internal/auth"
	"github.com/GoArmGo/MarketApp/internal/capture"
	"github.com/GoArmGo/MarketApp/internal/config"
	"github.com/GoArmGo/MarketApp/internal/core/ports"
	"github.com/GoArmGo/MarketApp/internal/usecase"
)

// UseCases - бизнес-логика приложения
type UseCases struct {
	Photo   usecase.PhotoUseCase
	Profile usecase.ProfileUseCase
	Service usecase.ServiceUseCase
}

// Capture - компоненты съемки с камеры
type Capture struct {
	Manager *capture.Manager
	Hub     *camera.Hub
}

type App struct {
	Config        *config.Config
	logger        *slog.Logger
	closers       []namedCloser
	useCases      UseCases
	capture       Capture
	verifier      *auth.Verifier
	consumer      ports.PhotoEventConsumer
	uploadLimiter chan struct{}
}

type namedCloser struct {
	name  string
	close func() error
}

func NewApp(
	cfg *config.Config,
	logger *slog.Logger,
	useCases UseCases,
	cam Capture,
	verifier *auth.Verifier,
	consumer ports.PhotoEventConsumer,
	uploadLimiter chan struct{},
) *App {
	return &App{
		Config:        cfg,
		logger:        logger,
		useCases:      useCases,
		capture:       cam,
		verifier:      verifier,
		consumer:      consumer,
		uploadLimiter: uploadLimiter,
	}
}

// OnShutdown регистрирует ресурс, который нужно закрыть при завершении.
// Ресурсы закрываются в обратном порядке.
func (a *App) OnShutdown(name string, closeFn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: closeFn})
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

// Run запускает приложение в режиме server или worker и блокируется до сигнала завершения
func (a *App) Run(ctx context.Context, mode string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting", "mode", mode)

	var err error
	switch mode {
	case "server":
		err = a.runServer(ctx)
	case "worker":
		err = a.runWorker(ctx)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте 'server' или 'worker')", mode)
	}

	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("shutdown finished with errors", "error", closeErr)
	}
	return err
}

// Shutdown закрывает все ресурсы приложения
func (a *App) Shutdown() error {
	var errs []error

	if a.capture.Manager != nil {
		if err := a.capture.Manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("ошибка остановки камер: %w", err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			errs = append(errs, fmt.Errorf("ошибка закрытия %s: %w", c.name, err))
			continue
		}
		a.logger.Info("resource closed", "name", c.name)
	}
	a.closers = nil

	return errors.Join(errs...)
}
