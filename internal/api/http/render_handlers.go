package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codecanvas/internal/domain/compose"
)

type renderRequest struct {
	Document string `json:"document"`
	Markup   string `json:"markup"`
	Style    string `json:"style"`
	Script   string `json:"script"`
	Sanitize bool   `json:"sanitize"`
}

// Render runs a document once in a pooled headless runtime. Either a full
// document or the three buffers may be sent. Script faults and timeouts
// still return the partial result, with the fault in "error".
func (h *Handlers) Render(c *gin.Context) {
	if h.pool == nil {
		fail(c, ErrRenderDisabled)
		return
	}
	defer h.tracked.Track(c, "sandbox", "render")()

	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := req.Document
	if doc == "" {
		doc = compose.Compose(req.Markup, req.Style, req.Script)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.options.RenderTimeout)
	defer cancel()

	result, err := h.pool.Render(ctx, doc)
	if result == nil {
		fail(c, err)
		return
	}
	if req.Sanitize {
		result.HTML = h.sanitizer.Sanitize(result.HTML)
	}

	resp := gin.H{"result": result}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Snapshot returns what the headless mirror of a workspace currently
// shows. With sanitize=true the HTML is passed through a UGC policy.
func (h *Handlers) Snapshot(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	headless := ws.Headless()
	if headless == nil {
		fail(c, ErrHeadlessDisabled)
		return
	}

	snap := headless.Snapshot()
	if sanitize, _ := strconv.ParseBool(c.Query("sanitize")); sanitize {
		snap.HTML = h.sanitizer.Sanitize(snap.HTML)
	}
	c.JSON(http.StatusOK, snap)
}

// Query runs ?xpath= against the headless mirror's current DOM
func (h *Handlers) Query(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	headless := ws.Headless()
	if headless == nil {
		fail(c, ErrHeadlessDisabled)
		return
	}

	expr := c.Query("xpath")
	if expr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "xpath parameter required"})
		return
	}

	result, err := headless.Query(expr)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
