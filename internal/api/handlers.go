package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-engine/internal/signal"
)

// FinalizeRequest is the body of POST /api/v1/signals/finalize. Payload is
// the raw AI output, passed through untyped. Snapshot and account are
// optional; a missing snapshot is looked up from the provider and a miss
// degrades per pipeline policy.
type FinalizeRequest struct {
	AssetID  string                     `json:"asset_id" binding:"required"`
	Payload  json.RawMessage            `json:"payload" binding:"required"`
	Snapshot *signal.IndicatorSnapshot  `json:"snapshot,omitempty"`
	Account  *signal.AccountState       `json:"account,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleFinalize(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	var payload interface{}
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not valid JSON"})
		return
	}

	snap := req.Snapshot
	if snap == nil && s.snapshots != nil {
		if found, ok := s.snapshots.Lookup(c.Request.Context(), req.AssetID); ok {
			snap = found
		}
	}

	var account signal.AccountState
	if req.Account != nil {
		account = *req.Account
	}

	finalized, err := s.pipeline.Finalize(payload, req.AssetID, snap, account)
	if err != nil {
		if errors.Is(err, signal.ErrInvalidSignalStructure) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error().Err(err).Str("asset_id", req.AssetID).Msg("Finalization failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "finalization failed"})
		return
	}

	c.JSON(http.StatusOK, finalized)
}

func (s *Server) handleStoreSnapshot(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no writable snapshot store configured"})
		return
	}

	var snap signal.IndicatorSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot: " + err.Error()})
		return
	}

	if err := s.store.Store(c.Request.Context(), &snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored": snap.Coin})
}

func (s *Server) handleGetSnapshot(c *gin.Context) {
	if s.snapshots == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot provider configured"})
		return
	}
	snap, ok := s.snapshots.Lookup(c.Request.Context(), c.Param("coin"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
