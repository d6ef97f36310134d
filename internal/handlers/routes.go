package handlers

import (
	"net/http"

	"github.com/Brownie44l1/attack-lab/internal/telemetry"
)

func enableCORS(origin string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes(corsOrigin string) *http.ServeMux {
	wrap := func(fn http.HandlerFunc) http.HandlerFunc {
		return enableCORS(corsOrigin, withRequestID(fn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", wrap(h.Health))
	mux.HandleFunc("/attacks", wrap(h.Attacks))
	mux.HandleFunc("/predict", wrap(h.Predict))
	mux.HandleFunc("/predict/image", wrap(h.PredictFromImage))
	mux.HandleFunc("/render", wrap(h.Render))
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}
