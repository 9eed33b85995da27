package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/openlabour/labour-engine/internal/market"
	"github.com/openlabour/labour-engine/internal/program"
	"github.com/openlabour/labour-engine/internal/storage"
)

// Response helpers. Payload fields are flattened into the envelope so a
// success response reads {"success": true, "txId": ..., ...}.

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	body := map[string]interface{}{
		"success": status >= 200 && status < 300,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			slog.Error("failed to encode response payload", "error", err)
			respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
			return
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			slog.Error("response payload is not an object", "error", err)
			respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
			return
		}
		for k, v := range fields {
			body[k] = v
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}); encErr != nil {
		slog.Error("failed to encode error response", "error", encErr)
	}
}

var errInternal = errors.New("internal server error")

// respondServiceError maps service errors onto HTTP statuses: precondition
// failures are the caller's fault, missing accounts are 404, everything else
// is logged and hidden behind a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, market.ErrNotAuthorized):
		respondError(w, http.StatusForbidden, err)
	case errors.Is(err, market.ErrProjectNotOpen),
		errors.Is(err, market.ErrProjectFull),
		errors.Is(err, market.ErrProjectInactive),
		errors.Is(err, market.ErrAssignmentInactive),
		errors.Is(err, market.ErrInvalidDayNumber),
		errors.Is(err, market.ErrNotLabourVerified),
		errors.Is(err, market.ErrAlreadyApproved),
		errors.Is(err, market.ErrNoTokenAccount),
		errors.Is(err, market.ErrSelfRating),
		errors.Is(err, market.ErrInvalidRating),
		errors.Is(err, market.ErrInvalidDailyRate),
		errors.Is(err, market.ErrInvalidDuration),
		errors.Is(err, market.ErrInvalidLabourers),
		errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrInvalidSignature):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, program.ErrAccountNotFound), errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}

var errInvalidWallet = errors.New("Invalid wallet address")

// urlParamKey parses a base58 public key out of a URL parameter.
func urlParamKey(r *http.Request, name string) (solana.PublicKey, error) {
	raw := chi.URLParam(r, name)
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, errInvalidWallet
	}
	return key, nil
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("service not ready"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
