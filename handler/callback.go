package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/middleware"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/service"
)

// CallbackReceiver accepts MinerU task callbacks
type CallbackReceiver interface {
	VerifyCallback(checksum, content string) bool
	Deliver(result service.TaskResult) bool
}

type CallbackHandler struct {
	mineru CallbackReceiver
}

func NewCallbackHandler(mineru CallbackReceiver) *CallbackHandler {
	return &CallbackHandler{mineru: mineru}
}

type CallbackRequest struct {
	Checksum string `json:"checksum" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// HandleCallback receives callback from MinerU. The data id of the task is the import
// request id, so the result is handed to the extraction waiting for it.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.mineru.VerifyCallback(req.Checksum, req.Content) {
		slog.Warn("mineru callback rejected", "reason", "checksum mismatch", "request_id", middleware.GetRequestID(c))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid checksum"})
		return
	}

	var result service.TaskResult
	if err := json.Unmarshal([]byte(req.Content), &result); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	if !h.mineru.Deliver(result) {
		// the import finished by polling, was superseded, or predates a restart
		slog.Info("mineru callback has no waiting import", "task_id", result.TaskID, "data_id", result.DataID)
		c.JSON(http.StatusNotFound, gin.H{"error": "Import not found"})
		return
	}

	slog.Debug("mineru callback delivered", "task_id", result.TaskID, "data_id", result.DataID, "state", result.State)
	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
