package stats

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the debug HTTP handler: Prometheus metrics on /metrics,
// a JSON counter snapshot on /stats, and a liveness probe on /healthz.
func Handler(s *Stats) http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s.GetSnapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// Serve runs the debug HTTP server on addr. Blocks until the server stops.
func Serve(addr string, s *Stats) error {
	return http.ListenAndServe(addr, Handler(s))
}
