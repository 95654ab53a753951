package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"roster-bot/internal/models"
	"roster-bot/internal/util"
)

const (
	ExportPath    = "/export/games.csv"
	exportSubject = "export:games"
)

// TableSource provides the attendance matrix of upcoming games.
type TableSource interface {
	UpcomingTable(ctx context.Context) ([]models.GameSummary, []models.Player, error)
}

// ExportToken is the HMAC a CSV export link has to carry.
func ExportToken(secret string) string {
	return util.HMACSHA256Hex(secret, exportSubject)
}

// ExportURL is the admin-only CSV download link under base.
func ExportURL(base, secret string) string {
	return base + ExportPath + "?token=" + url.QueryEscape(ExportToken(secret))
}

// Routes builds the HTTP handler: a health probe and the signed CSV export.
func Routes(src TableSource, secret string, started time.Time, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	})

	// CSV export (admin-only link with token = HMAC)
	r.Get(ExportPath, func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token required", http.StatusBadRequest)
			return
		}
		if !util.HMACEqual(token, ExportToken(secret)) {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		games, players, err := src.UpcomingTable(r.Context())
		if err != nil {
			logger.Error("csv export failed", "error", err)
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		header, rows := models.AttendanceTable(games, players, util.PrettyLayout)

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="games.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(header)
		_ = cw.WriteAll(rows)
		if err := cw.Error(); err != nil {
			logger.Warn("csv write", "error", err)
		}
	})
	return r
}

func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
