package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/model"
)

const changeBlock = 25 * time.Second

type ChangesHandler struct {
	feed  changefeed.Reader
	block time.Duration
}

func NewChangesHandler(feed changefeed.Reader) *ChangesHandler {
	return &ChangesHandler{feed: feed, block: changeBlock}
}

// WithBlock overrides how long one read waits before a keepalive ping.
func (h *ChangesHandler) WithBlock(d time.Duration) *ChangesHandler {
	h.block = d
	return h
}

// Stream pushes changes visible to the role in ?role= as server-sent
// events. Clients resume after a disconnect with ?last_id=.
func (h *ChangesHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change feed not configured"})
		return
	}

	role, err := model.ParseRole(c.Query("role"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lastID := c.Query("last_id")
	if lastID == "" {
		lastID = "$"
	}

	setSSEHeaders(c.Writer)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	sseWrite(c.Writer, "", "ping", "ready")
	flusher.Flush()

	for {
		if ctx.Err() != nil {
			return
		}

		entries, err := h.feed.Read(ctx, lastID, h.block)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "change feed read failed", "error", err)
			sseWrite(c.Writer, "", "error", map[string]string{"error": err.Error()})
			flusher.Flush()
			continue
		}

		if len(entries) == 0 {
			sseWrite(c.Writer, "", "ping", time.Now().UTC().Format(time.RFC3339Nano))
			flusher.Flush()
			continue
		}

		for _, entry := range entries {
			lastID = entry.ID
			if !entry.Change.VisibleTo(role) {
				continue
			}
			sseWrite(c.Writer, entry.ID, "change", entry.Change)
		}
		flusher.Flush()
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, id, event string, data any) {
	if err := sse.Encode(w, sse.Event{Id: id, Event: event, Data: data}); err != nil {
		slog.Warn("writing server-sent event", "error", err)
	}
}
