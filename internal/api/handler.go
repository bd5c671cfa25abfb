package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/feelbuddy/internal/agent"
	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/mood"
	"github.com/kalambet/feelbuddy/internal/quote"
	"github.com/kalambet/feelbuddy/internal/session"
)

// AppDeps holds dependencies for the HTTP API.
type AppDeps struct {
	Session *session.Controller
	Quotes  *quote.Selector
	// Chat and Voice are nil when no agent is configured; Buddy endpoints
	// then answer 503.
	Chat     agent.ChatStarter
	Voice    agent.VoiceDialer
	Location *time.Location
	Token    string
	Logger   *slog.Logger
	// SchemaVersion is the newest applied storage migration, reported by /health.
	SchemaVersion int
}

// NewAppHandler returns the feelbuddy REST API. Everything except /health
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Quotes == nil {
		deps.Quotes = quote.NewSelector()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/profile", handleGetProfile(deps))
		r.Put("/profile", handlePutProfile(deps))
		r.Get("/catalog", handleCatalog)
		r.Get("/feelings", handleListFeelings(deps))
		r.Post("/feelings", handleCheckIn(deps))
		r.Get("/stats", handleStats(deps))
		r.Get("/chart", handleChart(deps))
		r.Get("/quote", handleQuote(deps))
		r.Get("/home", handleHome(deps))

		r.Get("/state", handleGetState(deps))
		r.Post("/state/splash", handleCompleteSplash(deps))
		r.Post("/state/view", handleNavigate(deps))
		r.Post("/state/cancel", handleCancel(deps))

		r.Get("/data/export", handleExport(deps))
		r.Delete("/data", handlePurge(deps))

		r.Get("/buddy/greeting", handleGreeting(deps))
		r.Get("/buddy/context", handleBuddyContext(deps))
		r.Post("/buddy/chat", handleBuddyChat(deps))
		r.Handle("/buddy/voice", handleBuddyVoice(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"agent":  deps.Chat != nil,
			"schema": deps.SchemaVersion,
		})
	}
}

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Session.State()
		if s.User == nil {
			httpError(w, http.StatusNotFound, "not_found", "no user has onboarded yet")
			return
		}
		writeJSON(w, http.StatusOK, s.User)
	}
}

func handlePutProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u feeling.User
		if !decodeBody(w, r, &u) {
			return
		}
		s, err := deps.Session.Login(u)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, s.User)
	}
}

func handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, feeling.Catalog)
}

func handleListFeelings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Session.State().Feelings
		if limit := parseIntParam(r, "limit", 0, 0); limit > 0 {
			entries = mood.Tail(entries, limit)
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleCheckIn(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in feeling.CheckIn
		if !decodeBody(w, r, &in) {
			return
		}
		e, err := deps.Session.CheckIn(in)
		if err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, feeling.ErrIncompleteUser) {
				code = http.StatusConflict
			}
			httpError(w, code, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, mood.Summarize(deps.Session.State().Feelings, deps.Location))
	}
}

type chartResponse struct {
	Ready  bool         `json:"ready"`
	Points []mood.Point `json:"points"`
}

func handleChart(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Session.State().Feelings
		writeJSON(w, http.StatusOK, chartResponse{
			Ready:  mood.ChartReady(entries),
			Points: mood.ChartSeries(entries, deps.Location),
		})
	}
}

func handleQuote(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Quotes.PickLatest(deps.Session.State().Feelings))
	}
}

func handleHome(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Session.Home())
	}
}

type stateResponse struct {
	View     session.View  `json:"view"`
	ShowsNav bool          `json:"shows_nav"`
	User     *feeling.User `json:"user,omitempty"`
	Entries  int           `json:"entries"`
}

func newStateResponse(s session.State) stateResponse {
	return stateResponse{
		View:     s.View,
		ShowsNav: s.View.ShowsNav(),
		User:     s.User,
		Entries:  len(s.Feelings),
	}
}

func handleGetState(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newStateResponse(deps.Session.State()))
	}
}

func handleCompleteSplash(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newStateResponse(deps.Session.CompleteSplash()))
	}
}

func handleNavigate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			View session.View `json:"view"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if !req.View.Valid() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown view %q", req.View)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(deps.Session.Navigate(req.View)))
	}
}

func handleCancel(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newStateResponse(deps.Session.Cancel()))
	}
}

func handleExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := deps.Session.Export()
		if err != nil {
			deps.Logger.Error("exporting journal", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "export failed")
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="feelbuddy-export.json"`)
		writeJSON(w, http.StatusOK, recs)
	}
}

func handlePurge(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Session.Reset()
		if err != nil {
			deps.Logger.Error("purging journal", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "purge failed")
			return
		}
		deps.Logger.Info("journal purged via API")
		writeJSON(w, http.StatusOK, newStateResponse(s))
	}
}
