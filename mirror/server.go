package mirror

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/carlmjohnson/versioninfo"
	"github.com/did-method-prism/go-didprism/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server serves mirrored DID documents over HTTP
type Server struct {
	store  *store.GormSnapshotStore
	ledger string
	addr   string
	logger *slog.Logger
}

// NewServer creates a new HTTP server serving snapshots for one ledger
func NewServer(st *store.GormSnapshotStore, ledger string, addr string, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		ledger: ledger,
		addr:   addr,
		logger: logger.With("component", "server"),
	}
}

// Run starts the HTTP server (blocking)
func (s *Server) Run() error {
	handler := otelhttp.NewHandler(s.Handler(), "")

	s.logger.Info("http server listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, handler)
}

// Handler returns the route mux, without instrumentation
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_health", s.handleHealth)
	mux.HandleFunc("GET /{did}", s.handleDIDDoc)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return mux
}

// handleIndex serves the index page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "hello prism mirror\n")
}

// handleHealth handles GET /_health - returns version information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": versioninfo.Short(),
	})
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// handleDIDDoc handles GET /{did} - returns the mirrored DID document
func (s *Server) handleDIDDoc(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("did")
	ctx := r.Context()

	did, err := syntax.ParseDID(raw)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("invalid DID: %s", raw), http.StatusBadRequest)
		return
	}

	rec, err := s.store.Get(ctx, did.String(), s.ledger)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error fetching snapshot: %v", err), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		writeJSONError(w, fmt.Sprintf("DID not mirrored: %s", did), http.StatusNotFound)
		return
	}
	if rec.Deactivated {
		writeJSONError(w, fmt.Sprintf("DID deactivated: %s", did), http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", rec.ContentType)
	if _, err := w.Write(rec.Body); err != nil {
		s.logger.Error("failed writing response", "did", did, "error", err)
	}
}
