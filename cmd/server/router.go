package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lingualab/lingua-api/internal/platform/logger"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.requestLogger)

	r.Route("/api", func(r chi.Router) {
		// Content selection endpoints
		r.Post("/content/next", app.contentHandler.NextItem)
		r.Post("/situations/next", app.contentHandler.NextSituation)

		// Lesson attempt scope endpoints
		r.Post("/lessons/{lessonID}/attempt", app.contentHandler.StartAttempt)
		r.Delete("/lessons/{lessonID}/attempt", app.contentHandler.EndAttempt)

		// Progress endpoints
		r.Post("/attempts", app.progressHandler.SubmitAnswer)
		r.Post("/attempts/{attemptID}/pin", app.progressHandler.PinResult)
		r.Delete("/attempts/{attemptID}/pin", app.progressHandler.UnpinResult)
		r.Get("/categories/{categoryID}/mistakes", app.progressHandler.Mistakes)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}

// requestLogger stores a request-scoped logger on the context so downstream
// code logs with the request ID attached.
func (app *application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := app.logger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), log)))
	})
}
