package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/openlabour/labour-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const streamPollInterval = 2 * time.Second

// StreamMessage is one frame of a transaction status stream.
type StreamMessage struct {
	Type        string                      `json:"type"`
	Error       string                      `json:"error,omitempty"`
	Transaction *models.PreparedTransaction `json:"transaction,omitempty"`
}

// handleTransactionStream pushes ledger status changes for one prepared
// transaction over a websocket until the record reaches a terminal state or
// the client disconnects. Clients use this instead of polling while they wait
// for the reconciler to confirm a submitted transaction.
func (s *Server) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "transaction id required", http.StatusBadRequest)
		return
	}

	tx, err := s.svc.Transaction(r.Context(), id)
	if err != nil {
		http.Error(w, "transaction not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("transaction stream connected", "tx_id", id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Drain the client side so close frames are noticed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	if err := s.sendStreamMessage(conn, StreamMessage{Type: "status", Transaction: tx}); err != nil {
		return
	}
	lastStatus := tx.Status

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for !lastStatus.IsTerminal() {
		select {
		case <-ctx.Done():
			slog.Info("transaction stream disconnected", "tx_id", id)
			return
		case <-ticker.C:
		}

		tx, err := s.svc.Transaction(ctx, id)
		if err != nil {
			s.sendStreamMessage(conn, StreamMessage{Type: "error", Error: "failed to read transaction"})
			return
		}
		if tx.Status == lastStatus {
			continue
		}

		lastStatus = tx.Status
		if err := s.sendStreamMessage(conn, StreamMessage{Type: "status", Transaction: tx}); err != nil {
			return
		}
	}

	s.sendStreamMessage(conn, StreamMessage{Type: "done"})
	slog.Info("transaction stream finished", "tx_id", id, "status", lastStatus)
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}
