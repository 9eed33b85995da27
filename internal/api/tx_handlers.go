package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openlabour/labour-engine/internal/models"
)

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errors.New("transaction id is required"))
		return
	}

	tx, err := s.svc.Transaction(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transaction": tx})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filters := models.TxListFilters{
		Signer: r.URL.Query().Get("signer"),
		Status: models.TxStatus(r.URL.Query().Get("status")),
		Limit:  50, // default
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	transactions, err := s.svc.Transactions(r.Context(), filters)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total":        len(transactions),
	})
}

func (s *Server) handleReportSignature(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errors.New("transaction id is required"))
		return
	}

	var req struct {
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.Signature == "" {
		respondError(w, http.StatusBadRequest, errors.New("signature is required"))
		return
	}

	tx, err := s.svc.ReportSignature(r.Context(), id, req.Signature)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transaction": tx})
}

func (s *Server) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	signature := chi.URLParam(r, "signature")
	if signature == "" {
		respondError(w, http.StatusBadRequest, errors.New("signature is required"))
		return
	}

	status, err := s.svc.TransactionStatus(r.Context(), signature)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
