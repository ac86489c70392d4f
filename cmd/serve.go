package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/pipeline"
)

// analysisTimeout bounds one /analysis request.
const analysisTimeout = 5 * time.Minute

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site analysis over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Pipeline),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the HTTP routes around a.
func newRouter(a analyzer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/analysis", analysisHandler(a))
	return r
}

// analysisHandler runs the combined analysis for the query
// lat, lon, businessType and radiusKm. Missing parameters take the defaults.
func analysisHandler(a analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, err := siteFromQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, pipeline.ErrorSection{Error: err.Error()})
			return
		}

		log := zap.L().With(
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Float64("lat", site.Latitude),
			zap.Float64("lon", site.Longitude),
			zap.String("business_type", site.BusinessType),
		)

		ctx, cancel := context.WithTimeout(r.Context(), analysisTimeout)
		defer cancel()

		rep, err := a.Run(ctx, site)
		if err != nil {
			log.Error("analysis failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, pipeline.ErrorSection{Error: err.Error()})
			return
		}
		log.Info("analysis complete", zap.Strings("failed_steps", rep.Failed()))
		writeJSON(w, http.StatusOK, rep)
	}
}

func siteFromQuery(r *http.Request) (model.Site, error) {
	q := r.URL.Query()
	site := model.Site{
		Latitude:     model.DefaultLatitude,
		Longitude:    model.DefaultLongitude,
		BusinessType: model.DefaultBusinessType,
		RadiusKM:     model.DefaultRadiusKM,
	}

	numbers := []struct {
		param string
		dst   *float64
	}{
		{"lat", &site.Latitude},
		{"lon", &site.Longitude},
		{"radiusKm", &site.RadiusKM},
	}
	for _, n := range numbers {
		v := q.Get(n.param)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return site, eris.Errorf("%s must be a number, got %q", n.param, v)
		}
		*n.dst = f
	}
	if bt := q.Get("businessType"); bt != "" {
		site.BusinessType = bt
	}
	return site, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := printJSON(w, v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
