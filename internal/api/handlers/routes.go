package handlers

import (
	"net/http"
	"time"
)

// Handlers groups every endpoint the server exposes. Nil handlers are not
// routed.
type Handlers struct {
	Chat         *ChatHandler
	Profiles     *ProfilesHandler
	Transactions *TransactionsHandler
	Advice       *AdviceHandler
	Sessions     *SessionsHandler
}

// Register adds all routes to mux.
func Register(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("GET /health", Health)

	if h.Chat != nil {
		mux.HandleFunc("POST /api/process-chat", h.Chat.ProcessChat)
	}
	if h.Profiles != nil {
		mux.HandleFunc("GET /api/profiles/{userId}", func(w http.ResponseWriter, r *http.Request) {
			h.Profiles.GetProfile(w, r, r.PathValue("userId"))
		})
		mux.HandleFunc("POST /api/profiles/{userId}", func(w http.ResponseWriter, r *http.Request) {
			h.Profiles.SaveProfile(w, r, r.PathValue("userId"))
		})
	}
	if h.Transactions != nil {
		mux.HandleFunc("GET /api/transactions", h.Transactions.ListTransactions)
	}
	if h.Advice != nil {
		mux.HandleFunc("GET /api/advice", h.Advice.GetAdvice)
	}
	if h.Sessions != nil {
		// Operator only. CORS never advertises DELETE, so browsers cannot
		// reach it cross-origin.
		mux.HandleFunc("DELETE /api/sessions/{userId}", func(w http.ResponseWriter, r *http.Request) {
			h.Sessions.EvictSession(w, r, r.PathValue("userId"))
		})
	}
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","time":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}
