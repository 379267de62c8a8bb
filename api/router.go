// Package api serves the imported question bank over a read-only JSON API.
package api

import (
	"net/http"

	"github.com/examapp/qbank/db"
)

type API struct {
	db *db.DB
}

func NewRouter(database *db.DB) http.Handler {
	api := &API{db: database}

	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", api.healthCheck)
	mux.HandleFunc("/api/questions", api.getQuestions)
	mux.HandleFunc("/api/questions/", api.getQuestionByID)
	mux.HandleFunc("/api/stats", api.getStats)

	return corsMiddleware(mux)
}

// CORS middleware to allow web requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
