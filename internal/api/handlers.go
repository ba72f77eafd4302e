package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/michaelssavage/spanish-worksheets/internal/delivery"
	"github.com/michaelssavage/spanish-worksheets/internal/scheduler"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
	"github.com/michaelssavage/spanish-worksheets/internal/worksheet"
)

// Worksheets is the delivery surface the handlers call.
// *delivery.Service implements it.
type Worksheets interface {
	Generate(ctx context.Context, user store.User) (*delivery.Result, error)
	Resend(ctx context.Context, user store.User) (*store.Worksheet, error)
	Latest(ctx context.Context, user store.User) (*store.Worksheet, error)
	Passthrough(ctx context.Context, themes []string) (string, []string, error)
}

// Sweeper runs the delivery sweep. *scheduler.Sweeper implements it.
type Sweeper interface {
	Run(ctx context.Context, day time.Time) (scheduler.Summary, error)
}

// WorksheetResponse is the JSON form of a stored worksheet.
type WorksheetResponse struct {
	ID            int             `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	ContentHash   string          `json:"content_hash"`
	Content       json.RawMessage `json:"content"`
	Themes        []string        `json:"themes"`
	SchemaVersion string          `json:"schema_version"`
	Emailed       *bool           `json:"emailed,omitempty"`
}

func worksheetResponse(ws *store.Worksheet) WorksheetResponse {
	content := json.RawMessage(ws.Content)
	if !json.Valid(content) {
		b, _ := json.Marshal(ws.Content)
		content = b
	}
	return WorksheetResponse{
		ID:            ws.ID,
		CreatedAt:     ws.CreatedAt,
		ContentHash:   ws.ContentHash,
		Content:       content,
		Themes:        ws.Themes,
		SchemaVersion: ws.SchemaVersion,
	}
}

type handlers struct {
	worksheets Worksheets
	sweeper    Sweeper
	now        func() time.Time
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runSweep continues when the cron caller hangs up.
func (h *handlers) runSweep(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	sum, err := h.sweeper.Run(ctx, h.now().UTC())
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "summary": sum})
}

func (h *handlers) generate(c *gin.Context) {
	user, _ := currentUser(c)
	res, err := h.worksheets.Generate(c.Request.Context(), user)
	if err != nil {
		respondInternal(c, err)
		return
	}
	switch res.Outcome {
	case worksheet.OutcomeCreated:
		body := worksheetResponse(res.Worksheet)
		body.Emailed = &res.Emailed
		c.JSON(http.StatusCreated, body)
	case worksheet.OutcomeDuplicate:
		respondError(c, http.StatusConflict, CodeDuplicate, "generated worksheet duplicates an existing one")
	default:
		respondError(c, http.StatusConflict, CodeMalformed, "model output could not be turned into a worksheet")
	}
}

type passthroughRequest struct {
	Themes []string `json:"themes"`
}

// passthrough treats an unreadable body as no themes.
func (h *handlers) passthrough(c *gin.Context) {
	var req passthroughRequest
	if c.Request.ContentLength != 0 {
		_ = json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, 64<<10)).Decode(&req)
	}
	text, _, err := h.worksheets.Passthrough(c.Request.Context(), req.Themes)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *handlers) resend(c *gin.Context) {
	user, _ := currentUser(c)
	ws, err := h.worksheets.Resend(c.Request.Context(), user)
	switch {
	case errors.Is(err, delivery.ErrNoWorksheet):
		respondError(c, http.StatusNotFound, CodeNotFound, "no worksheet to resend")
	case errors.Is(err, delivery.ErrSendFailed):
		_ = c.Error(err)
		respondError(c, http.StatusBadGateway, CodeEmailFailed, "email delivery failed")
	case err != nil:
		respondInternal(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "sent", "worksheet_id": ws.ID})
	}
}

func (h *handlers) latest(c *gin.Context) {
	user, _ := currentUser(c)
	ws, err := h.worksheets.Latest(c.Request.Context(), user)
	switch {
	case errors.Is(err, delivery.ErrNoWorksheet):
		respondError(c, http.StatusNotFound, CodeNotFound, "no worksheet yet")
	case err != nil:
		respondInternal(c, err)
	default:
		c.JSON(http.StatusOK, worksheetResponse(ws))
	}
}
