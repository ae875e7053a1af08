package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/safescan/recall-cli/internal/config"
	"github.com/safescan/recall-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP matching API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(env, cfg.Server, cfg.Matching),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter assembles the API routes with CORS and rate limiting.
func buildRouter(env *appEnv, srvCfg config.ServerConfig, matchCfg config.MatchingConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if len(srvCfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: srvCfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	if srvCfg.RatePerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(srvCfg.RatePerSecond), srvCfg.RateBurst)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if !limiter.Allow() {
					writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, req)
			})
		})
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/check", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Candidates []string `json:"candidates"`
			Brand      string   `json:"brand"`
			Country    string   `json:"country"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Candidates) == 0 {
			writeJSONError(w, http.StatusBadRequest, "candidates is required")
			return
		}

		result := env.Correlator.CheckAllCandidates(body.Candidates, body.Brand, body.Country, env.Corpus)
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/v1/resolve", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Brand   string `json:"brand"`
			Lot     string `json:"lot"`
			Country string `json:"country"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Lot == "" {
			writeJSONError(w, http.StatusBadRequest, "lot is required")
			return
		}

		det := env.Resolver.GetRecallStatus(model.Product{
			Brand:     body.Brand,
			LotNumber: body.Lot,
			Country:   body.Country,
		}, env.Corpus)
		writeJSON(w, http.StatusOK, det)
	})

	r.Get("/v1/brands/suggest", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query().Get("q")
		if q == "" {
			writeJSONError(w, http.StatusBadRequest, "q is required")
			return
		}

		matches := env.Matcher.FindTopMatches(q, matchCfg.MaxSuggestions, matchCfg.SuggestThreshold)
		if matches == nil {
			matches = []model.BrandMatch{}
		}
		writeJSON(w, http.StatusOK, matches)
	})

	r.Post("/v1/patterns/validate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Brand string `json:"brand"`
			Lot   string `json:"lot"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		v, err := env.Patterns.Validate(req.Context(), body.Brand, body.Lot)
		if err != nil {
			zap.L().Error("pattern validation failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "validation failed")
			return
		}
		writeJSON(w, http.StatusOK, v)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
