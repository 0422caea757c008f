package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/middleware"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/service"
)

const defaultMaxUploadBytes = 20 << 20

type CockpitHandler struct {
	cockpit        *service.CockpitStore
	importer       *service.Importer
	maxUploadBytes int64
	now            func() time.Time
}

func NewCockpitHandler(cockpit *service.CockpitStore, importer *service.Importer, maxUploadBytes int64) *CockpitHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &CockpitHandler{
		cockpit:        cockpit,
		importer:       importer,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Register mounts the cockpit routes on api
func (h *CockpitHandler) Register(api *gin.RouterGroup) {
	api.GET("/cockpit", h.Get)
	api.DELETE("/cockpit", h.Clear)
	api.POST("/cockpit/demo", h.LoadDemo)
	api.POST("/cockpit/import", h.Import)
	api.POST("/cockpit/import-text", h.ImportText)
	api.PUT("/cockpit/confirmation", h.SetConfirmation)

	api.POST("/pending/confirm-all", h.ConfirmAll)
	api.POST("/pending/:id/confirm", h.ConfirmPending)
	api.POST("/pending/:id/reject", h.RejectPending)
	api.PUT("/pending/:id", h.EditPending)

	api.POST("/rationales/:id/review", h.MarkReviewed)
	api.GET("/summary", h.Summary)
}

// RationaleView is a confirmed rationale as shown in the cockpit
type RationaleView struct {
	ID                string                   `json:"id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	CreatedAt         time.Time                `json:"createdAt"`
	LastReviewedAt    time.Time                `json:"lastReviewedAt"`
	Status            model.RationaleStatus    `json:"status"`
	DaysSinceReview   int                      `json:"daysSinceReview"`
	ContextualSignals []model.ContextualSignal `json:"contextualSignals"`
}

// CockpitView is the read model served to clients
type CockpitView struct {
	Loan                   *model.LoanInfo          `json:"loan"`
	ApprovalLogicAgeMonths *int                     `json:"approvalLogicAgeMonths"`
	Rationales             []RationaleView          `json:"rationales"`
	PendingRationales      []model.PendingRationale `json:"pendingRationales"`
	IsExtracting           bool                     `json:"isExtracting"`
	ShowConfirmation       bool                     `json:"showConfirmation"`
	DataSource             model.DataSource         `json:"dataSource"`
	DocumentImport         bool                     `json:"documentImport"`
	Notices                []service.Notice         `json:"notices"`
}

// NewCockpitView renders state as seen at now. Statuses are recomputed and at most
// two contextual signals are shown per rationale.
func NewCockpitView(state model.CockpitState, notices []service.Notice, now time.Time) CockpitView {
	state = service.RefreshStatuses(state, now)

	view := CockpitView{
		Loan:              state.Loan,
		Rationales:        make([]RationaleView, 0, len(state.Rationales)),
		PendingRationales: state.PendingRationales,
		IsExtracting:      state.IsExtracting,
		ShowConfirmation:  state.ShowConfirmation,
		DataSource:        state.DataSource,
		Notices:           notices,
	}
	if state.Loan != nil {
		months := service.ApprovalLogicAgeMonths(state.Loan.ApprovalDate, now)
		view.ApprovalLogicAgeMonths = &months
	}

	for _, r := range state.Rationales {
		signals := r.ContextualSignals
		if len(signals) > model.MaxSignalsDisplayed {
			signals = signals[:model.MaxSignalsDisplayed]
		}
		if signals == nil {
			signals = []model.ContextualSignal{}
		}
		view.Rationales = append(view.Rationales, RationaleView{
			ID:                r.ID,
			Title:             r.Title,
			Description:       r.Description,
			CreatedAt:         r.CreatedAt,
			LastReviewedAt:    r.LastReviewedAt,
			Status:            r.Status,
			DaysSinceReview:   service.DaysSinceReview(r.LastReviewedAt, now),
			ContextualSignals: signals,
		})
	}
	return view
}

// Get returns the cockpit view
func (h *CockpitHandler) Get(c *gin.Context) {
	h.render(c, http.StatusOK, h.cockpit.State())
}

// LoadDemo replaces the cockpit with the demo loan
func (h *CockpitHandler) LoadDemo(c *gin.Context) {
	state := h.cockpit.Dispatch(c.Request.Context(), service.LoadDemo{Now: h.now()})
	h.render(c, http.StatusOK, state)
}

// Clear resets the cockpit and removes the saved snapshot
func (h *CockpitHandler) Clear(c *gin.Context) {
	var state model.CockpitState
	if h.importer != nil {
		state = h.importer.Clear(c.Request.Context())
	} else {
		state = h.cockpit.Dispatch(c.Request.Context(), service.ClearState{})
	}
	h.render(c, http.StatusOK, state)
}

// Import accepts a PDF upload and starts a background extraction
func (h *CockpitHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The document is too large."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The document is too large."})
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.maxUploadBytes+1)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The document could not be read."})
		return
	}
	if int64(buf.Len()) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The document is too large."})
		return
	}

	reqID, err := h.importer.ImportDocument(c.Request.Context(), service.Document{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        buf.Bytes(),
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrImportUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": service.UserMessage(err, "The document could not be processed.")})
		return
	}

	logger.Info(logger.WithExtractionID(c.Request.Context(), reqID), "document import accepted",
		"filename", header.Filename,
		"request_id", middleware.GetRequestID(c),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"requestId":    reqID,
		"isExtracting": true,
	})
}

type importTextRequest struct {
	Text string `json:"text"`
}

// ImportText extracts rationales from raw text
func (h *CockpitHandler) ImportText(c *gin.Context) {
	var req importTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	state, err := h.importer.ImportText(c.Request.Context(), req.Text)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, service.ErrStaleExtraction) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": service.UserMessage(err, "The document could not be processed.")})
		return
	}
	h.render(c, http.StatusOK, state)
}

type confirmationRequest struct {
	Show *bool `json:"show" binding:"required"`
}

// SetConfirmation shows or hides the confirmation surface
func (h *CockpitHandler) SetConfirmation(c *gin.Context) {
	var req confirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	state := h.cockpit.Dispatch(c.Request.Context(), service.SetShowConfirmation{Value: *req.Show})
	h.render(c, http.StatusOK, state)
}

// ConfirmAll confirms every pending rationale
func (h *CockpitHandler) ConfirmAll(c *gin.Context) {
	state := h.cockpit.Dispatch(c.Request.Context(), service.ConfirmAllRationales{At: h.now()})
	h.render(c, http.StatusOK, state)
}

// ConfirmPending confirms one pending rationale
func (h *CockpitHandler) ConfirmPending(c *gin.Context) {
	state, ok := h.cockpit.TryDispatch(c.Request.Context(), service.ConfirmRationale{ID: c.Param("id"), At: h.now()})
	if !ok {
		h.pendingNotFound(c)
		return
	}
	h.render(c, http.StatusOK, state)
}

// RejectPending discards one pending rationale
func (h *CockpitHandler) RejectPending(c *gin.Context) {
	state, ok := h.cockpit.TryDispatch(c.Request.Context(), service.RejectRationale{ID: c.Param("id")})
	if !ok {
		h.pendingNotFound(c)
		return
	}
	h.render(c, http.StatusOK, state)
}

type editPendingRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// EditPending replaces the title and description of a pending rationale
func (h *CockpitHandler) EditPending(c *gin.Context) {
	var req editPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A title is required."})
		return
	}

	state, ok := h.cockpit.TryDispatch(c.Request.Context(), service.EditPendingRationale{
		ID:          c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
	})
	if !ok {
		h.pendingNotFound(c)
		return
	}
	h.render(c, http.StatusOK, state)
}

// MarkReviewed records a review of a confirmed rationale
func (h *CockpitHandler) MarkReviewed(c *gin.Context) {
	state, ok := h.cockpit.TryDispatch(c.Request.Context(), service.MarkReviewed{ID: c.Param("id"), At: h.now()})
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rationale not found"})
		return
	}
	h.render(c, http.StatusOK, state)
}

// Summary returns the review summary as JSON, or as plain text with ?format=text
func (h *CockpitHandler) Summary(c *gin.Context) {
	state := h.cockpit.State()
	if state.Loan == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No loan is loaded."})
		return
	}

	summary := service.GenerateReviewSummary(state.Rationales, state.Loan.ID, h.now())
	if c.Query("format") == "text" {
		c.String(http.StatusOK, summary.SummaryText)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *CockpitHandler) pendingNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Pending rationale not found"})
}

func (h *CockpitHandler) render(c *gin.Context, status int, state model.CockpitState) {
	view := NewCockpitView(state, h.cockpit.Notices(), h.now())
	view.DocumentImport = h.importer != nil && h.importer.DocumentsEnabled()
	c.JSON(status, view)
}
