package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/MarketApp/internal/auth"
	"github.com/GoArmGo/MarketApp/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

const shutdownTimeout = 30 * time.Second

// runServer запускает HTTP сервер и блокируется до отмены ctx
func (a *App) runServer(ctx context.Context) error {
	serverAddr := fmt.Sprintf(":%s", a.Config.ServerPort)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server started", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ошибка при запуске сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received, stopping server")

	ctxServer, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxServer); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

func (a *App) router() http.Handler {
	return newRouter(routes{
		logger:        a.logger,
		verifier:      a.verifier,
		timeout:       a.Config.RequestTimeout,
		uploadsPerMin: a.Config.UploadRatePerMinute,
		photos:        handler.NewPhotoHandler(a.useCases.Photo, a.uploadLimiter, a.logger),
		profiles:      handler.NewProfileHandler(a.useCases.Profile, a.logger),
		services:      handler.NewServiceHandler(a.useCases.Service, a.logger),
		capture: handler.NewCaptureHandler(
			a.useCases.Photo,
			a.capture.Manager,
			a.capture.Hub,
			a.Config.CaptureOpenTimeout,
			a.uploadLimiter,
			a.logger,
		),
	})
}

type routes struct {
	logger        *slog.Logger
	verifier      *auth.Verifier
	timeout       time.Duration
	uploadsPerMin int

	photos   *handler.PhotoHandler
	profiles *handler.ProfileHandler
	services *handler.ServiceHandler
	capture  *handler.CaptureHandler
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(rt.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(handler.Authenticator(rt.verifier, rt.logger))

		// долгоживущее соединение, без таймаута запроса
		r.Get("/capture/ws", rt.capture.Stream)
		// ожидание камеры ограничено CaptureOpenTimeout
		r.Post("/capture/start", rt.capture.Start)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(rt.timeout))

			r.Get("/me", rt.profiles.Me)
			r.Patch("/me", rt.profiles.UpdateMe)
			r.Get("/users/{uid}", rt.profiles.GetProfile)
			r.Get("/users/{uid}/photos", rt.photos.ListPhotos)
			r.Get("/users/{uid}/services", rt.services.ListProviderServices)
			r.Get("/providers", rt.profiles.ListProviders)

			r.Put("/photos/{id}/primary", rt.photos.SetPrimary)
			r.Delete("/photos/{id}", rt.photos.DeletePhoto)

			r.Post("/capture/stop", rt.capture.Stop)
			r.Post("/capture/deny", rt.capture.Deny)

			r.Get("/services", rt.services.ListActiveServices)
			r.Post("/services", rt.services.CreateService)

			r.Group(func(r chi.Router) {
				r.Use(httprate.Limit(
					rt.uploadsPerMin,
					time.Minute,
					httprate.WithKeyFuncs(keyByUser),
				))
				r.Post("/photos", rt.photos.UploadPhoto)
				r.Post("/capture/shot", rt.capture.Shot)
			})
		})
	})

	return r
}

// keyByUser - ключ лимита загрузок: пользователь из токена, иначе IP
func keyByUser(r *http.Request) (string, error) {
	if identity, ok := handler.IdentityFromContext(r.Context()); ok {
		return "user:" + identity.UID, nil
	}
	return httprate.KeyByIP(r)
}
