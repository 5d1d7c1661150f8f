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

	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/internal/engine"
	"github.com/MartinezAgullo/copforge/internal/query"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the COP tool server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e := initEngine(ctx, cfg)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e.Engine),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting COP tool server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP surface: one POST route per tool operation,
// plus read-only resource endpoints over the picture.
func newRouter(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/tools", func(r chi.Router) {
		r.Post("/find_duplicates", func(w http.ResponseWriter, req *http.Request) {
			var body engine.FindDuplicatesRequest
			if !decodeBody(w, req, &body) {
				return
			}
			resp, err := eng.FindDuplicates(req.Context(), body)
			respond(w, resp, err)
		})

		r.Post("/merge_entities", func(w http.ResponseWriter, req *http.Request) {
			var body engine.MergeRequest
			if !decodeBody(w, req, &body) {
				return
			}
			resp, err := eng.MergeEntities(req.Context(), body)
			respond(w, resp, err)
		})

		r.Post("/update_cop", func(w http.ResponseWriter, req *http.Request) {
			var body engine.UpdateRequest
			if !decodeBody(w, req, &body) {
				return
			}
			writeJSON(w, http.StatusOK, eng.UpdateCOP(req.Context(), body))
		})

		r.Post("/query_cop", func(w http.ResponseWriter, req *http.Request) {
			var body engine.QueryRequest
			if !decodeBody(w, req, &body) {
				return
			}
			resp, err := eng.QueryCOP(req.Context(), body)
			respond(w, resp, err)
		})

		r.Post("/get_cop_stats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, eng.GetCOPStats(req.Context()))
		})

		r.Post("/sync_to_mapa", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, eng.SyncToMapa(req.Context()))
		})

		r.Post("/load_from_mapa", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, eng.LoadFromMapa(req.Context()))
		})

		r.Post("/check_mapa_connection", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, eng.CheckMapaConnection(req.Context()))
		})
	})

	r.Route("/cop", func(r chi.Router) {
		r.Get("/entities", func(w http.ResponseWriter, _ *http.Request) {
			snap := eng.Store().List()
			writeJSON(w, http.StatusOK, snap.Entities)
		})

		r.Get("/entities/{entityID}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "entityID")
			entity, ok := eng.Store().Get(id)
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found: " + id})
				return
			}
			writeJSON(w, http.StatusOK, entity)
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, eng.GetCOPStats(req.Context()))
		})
	})

	return r
}

// decodeBody parses the JSON request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, req *http.Request, dst any) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// respond maps engine errors onto HTTP statuses: validation and filter
// problems are the caller's fault, missing entities are 404.
func respond(w http.ResponseWriter, resp any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	status := http.StatusInternalServerError
	switch {
	case cop.IsValidation(err), eris.Is(err, query.ErrInvalidFilter):
		status = http.StatusBadRequest
	case eris.Is(err, cop.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
