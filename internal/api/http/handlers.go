package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/api/web"
	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
	"github.com/GriffinCanCode/codecanvas/internal/domain/compose"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview/sandbox"
	"github.com/GriffinCanCode/codecanvas/internal/domain/starter"
	"github.com/GriffinCanCode/codecanvas/internal/domain/workspace"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

// Version is reported by the health endpoint
const Version = "0.3.0"

// Options tunes request handling
type Options struct {
	ExportBaseName string        // Download name without extension
	ImportMaxBytes int64         // Largest accepted upload
	RenderTimeout  time.Duration // Upper bound for POST /api/render
}

// Handlers contains all HTTP handlers
type Handlers struct {
	manager   *workspace.Manager
	templates *starter.Registry
	pool      *sandbox.Pool // nil disables POST /api/render
	metrics   *monitoring.Metrics
	tracked   *HandlerMetrics
	sanitizer *bluemonday.Policy
	fetcher   Fetcher // nil disables POST .../import/url
	logger    *zap.Logger
	options   Options
}

// NewHandlers creates a new handler set
func NewHandlers(
	manager *workspace.Manager,
	templates *starter.Registry,
	pool *sandbox.Pool,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
	options Options,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.ImportMaxBytes <= 0 {
		options.ImportMaxBytes = 10 << 20
	}
	if options.RenderTimeout <= 0 {
		options.RenderTimeout = 5 * time.Second
	}
	return &Handlers{
		manager:   manager,
		templates: templates,
		pool:      pool,
		metrics:   metrics,
		tracked:   NewHandlerMetrics(metrics),
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
		options:   options,
	}
}

// WithFetcher enables importing project archives from URLs
func (h *Handlers) WithFetcher(f Fetcher) *Handlers {
	h.fetcher = f
	return h
}

// Register adds every HTTP route to r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.GET("/preview/:workspace/:target", h.PreviewWindow)
	r.StaticFS("/assets", web.Assets())
	r.GET("/health", h.Health)

	r.GET("/api/templates", h.ListTemplates)
	r.POST("/api/render", h.Render)
	r.POST("/api/logs", h.StreamLogs)

	r.GET("/api/workspaces", h.ListWorkspaces)
	r.POST("/api/workspaces", h.CreateWorkspace)
	r.GET("/api/workspaces/:id", h.GetWorkspace)
	r.DELETE("/api/workspaces/:id", h.DeleteWorkspace)
	r.PUT("/api/workspaces/:id/buffers/:buffer", h.UpdateBuffer)
	r.GET("/api/workspaces/:id/document", h.Document)
	r.GET("/api/workspaces/:id/modified", h.Modified)
	r.POST("/api/workspaces/:id/preview", h.OpenPreview)
	r.POST("/api/workspaces/:id/refresh", h.Refresh)
	r.GET("/api/workspaces/:id/export", h.Export)
	r.POST("/api/workspaces/:id/import", h.Import)
	r.POST("/api/workspaces/:id/import/url", h.ImportURL)
	r.GET("/api/workspaces/:id/snapshot", h.Snapshot)
	r.GET("/api/workspaces/:id/query", h.Query)
	r.POST("/api/workspaces/:id/ui", h.Dispatch)
}

// Index serves the editor page
func (h *Handlers) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index())
}

// PreviewWindow serves the page a detached preview window loads
func (h *Handlers) PreviewWindow(c *gin.Context) {
	if _, err := h.workspace(c, "workspace"); err != nil {
		fail(c, err)
		return
	}
	if _, err := id.ParseTargetID(c.Param("target")); err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Preview())
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":     "healthy",
		"service":    "codecanvas",
		"version":    Version,
		"workspaces": h.manager.Count(),
	}
	if h.pool != nil {
		resp["render_pool"] = h.pool.Stats()
	}
	if h.metrics != nil {
		resp["uptime_seconds"] = h.metrics.UptimeSeconds()
	}
	c.JSON(http.StatusOK, resp)
}

// ListTemplates lists the starter templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates := h.templates.List()
	c.JSON(http.StatusOK, gin.H{
		"templates": templates,
		"default":   starter.DefaultName,
	})
}

type createRequest struct {
	Template string `json:"template"`
}

// CreateWorkspace creates a workspace from a template
func (h *Handlers) CreateWorkspace(c *gin.Context) {
	defer h.tracked.Track(c, "workspace", "create")()

	var req createRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ws, err := h.manager.Create(req.Template)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       ws.ID,
		"template": ws.Template,
		"socket":   "/ws/editor/" + ws.ID.String(),
		"info":     ws.Info(),
	})
}

// ListWorkspaces lists all workspaces, oldest first
func (h *Handlers) ListWorkspaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workspaces": h.manager.List(),
		"count":      h.manager.Count(),
	})
}

// GetWorkspace returns a workspace summary and its buffers
func (h *Handlers) GetWorkspace(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"info":      ws.Info(),
		"buffers":   ws.Coordinator().Snapshot(),
		"baselines": ws.Coordinator().Baselines(),
	})
}

// DeleteWorkspace closes a workspace and every socket attached to it
func (h *Handlers) DeleteWorkspace(c *gin.Context) {
	defer h.tracked.Track(c, "workspace", "delete")()

	wid, err := id.ParseWorkspaceID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.manager.Delete(wid); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": wid})
}

type bufferRequest struct {
	Text string `json:"text"`
}

// UpdateBuffer replaces one buffer and pushes the new document to every
// preview of the workspace
func (h *Handlers) UpdateBuffer(c *gin.Context) {
	defer h.tracked.Track(c, "workspace", "edit")()

	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	bid, err := buffer.ParseID(c.Param("buffer"))
	if err != nil {
		fail(c, err)
		return
	}

	var req bufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coord := ws.Coordinator()
	if err := coord.OnBufferChanged(bid, req.Text); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buffer":   bid,
		"revision": coord.Revision(),
		"modified": coord.IsModified(),
	})
}

// Document returns the composed document as HTML
func (h *Handlers) Document(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	coord := ws.Coordinator()
	doc := coord.Document()
	etag := `"` + compose.Fingerprint(doc) + `"`

	c.Header("X-Revision", strconv.FormatUint(coord.Revision(), 10))
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// Modified reports whether leaving the workspace would lose edits
func (h *Handlers) Modified(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	coord := ws.Coordinator()
	c.JSON(http.StatusOK, gin.H{
		"modified": coord.IsModified(),
		"buffers":  coord.ModifiedBuffers(),
	})
}

// windowTarget is implemented by socket-backed detached targets
type windowTarget interface {
	ID() id.TargetID
	Path() string
}

// OpenPreview opens the detached preview, or returns the live one
func (h *Handlers) OpenPreview(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	target, created, err := ws.Coordinator().RequestDetachedPreview()
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"created": created,
		"state":   preview.DetachedTargetActive.String(),
	}
	if wt, ok := target.(windowTarget); ok {
		resp["target"] = wt.ID()
		resp["url"] = wt.Path()
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// Refresh re-presents the current document to every preview
func (h *Handlers) Refresh(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ws.Coordinator().Refresh()
	c.JSON(http.StatusOK, gin.H{"revision": ws.Coordinator().Revision()})
}

type uiRequest struct {
	Action workspace.Action `json:"action"`
}

// Dispatch applies a chrome state transition
func (h *Handlers) Dispatch(c *gin.Context) {
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req uiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := ws.Dispatch(req.Action)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ui": state})
}

// workspace resolves the workspace named by the path parameter
func (h *Handlers) workspace(c *gin.Context, param string) (*workspace.Workspace, error) {
	wid, err := id.ParseWorkspaceID(c.Param(param))
	if err != nil {
		return nil, err
	}
	return h.manager.Get(wid)
}
