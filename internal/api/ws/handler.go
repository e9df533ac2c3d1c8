package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
	"github.com/GriffinCanCode/codecanvas/internal/domain/workspace"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Inbound is a message from an editor or preview page
type Inbound struct {
	Type   string            `json:"type"`
	Buffer string            `json:"buffer,omitempty"`
	Text   string            `json:"text"`
	Action *workspace.Action `json:"action,omitempty"`
}

// Handler upgrades editor and preview-window connections
type Handler struct {
	hub     *Hub
	manager *workspace.Manager
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, manager *workspace.Manager) *Handler {
	return &Handler{hub: hub, manager: manager}
}

// Register adds the socket routes to r
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/ws/editor/:workspace", h.HandleEditor)
	r.GET("/ws/preview/:workspace/:target", h.HandlePreview)
}

// HandleEditor serves the editor page socket of a workspace
func (h *Handler) HandleEditor(c *gin.Context) {
	wid, err := id.ParseWorkspaceID(c.Param("workspace"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws, err := h.manager.Attach(wid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	defer h.manager.Detach(wid)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := h.connect(conn, roleEditor, wid)
	defer h.disconnect(cl)

	h.hub.addEditor(wid, cl)
	defer h.hub.removeEditor(wid, cl)

	coord := ws.Coordinator()
	coord.OnDetachedClosed(func() {
		h.hub.broadcast(wid, map[string]interface{}{
			"type":      "preview_closed",
			"timestamp": time.Now().Unix(),
		})
	})
	coord.OnChanged(func() {
		h.hub.broadcast(wid, modifiedMessage(ws))
	})

	cl.sendJSON(h.welcome(ws))
	cl.readLoop(func(data []byte) {
		h.handleEditorMessage(cl, ws, data)
	})
}

// HandlePreview serves the socket of a detached preview window
func (h *Handler) HandlePreview(c *gin.Context) {
	wid, err := id.ParseWorkspaceID(c.Param("workspace"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tid, err := id.ParseTargetID(c.Param("target"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.manager.Attach(wid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	defer h.manager.Detach(wid)

	target, err := h.hub.Detached(wid, tid)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := h.connect(conn, rolePreview, wid)
	defer h.disconnect(cl)

	if err := target.attach(cl); err != nil {
		cl.sendError(err.Error())
		return
	}
	defer target.Close()

	cl.logger.Debug("Preview window attached", zap.String("target", tid.String()))
	cl.readLoop(func(data []byte) {
		var msg Inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			return
		}
		cl.record("in", msg.Type)
		if msg.Type == "ping" {
			cl.sendJSON(map[string]interface{}{"type": "pong"})
		}
	})
}

func (h *Handler) connect(conn *websocket.Conn, role string, wid id.WorkspaceID) *client {
	logger := h.hub.logger.With(zap.String("workspace", wid.String()))
	cl := newClient(conn, role, h.hub.config, logger, h.hub.metrics)
	if h.hub.metrics != nil {
		h.hub.metrics.IncWSConnections(role)
	}
	go cl.writePump()
	cl.logger.Debug("WebSocket connected")
	return cl
}

func (h *Handler) disconnect(cl *client) {
	cl.close()
	if h.hub.metrics != nil {
		h.hub.metrics.DecWSConnections(cl.role)
	}
	cl.logger.Debug("WebSocket disconnected")
}

func (h *Handler) welcome(ws *workspace.Workspace) map[string]interface{} {
	coord := ws.Coordinator()
	return map[string]interface{}{
		"type":      "welcome",
		"workspace": ws.ID.String(),
		"template":  ws.Template,
		"document":  coord.Document(),
		"buffers":   coord.Snapshot(),
		"modified":  coord.IsModified(),
		"detached":  coord.State().String(),
		"ui":        ws.UI(),
		"timestamp": time.Now().Unix(),
	}
}

func (h *Handler) handleEditorMessage(cl *client, ws *workspace.Workspace, data []byte) {
	var msg Inbound
	if err := sonic.Unmarshal(data, &msg); err != nil {
		cl.sendError("malformed message")
		return
	}
	cl.record("in", msg.Type)

	coord := ws.Coordinator()

	switch msg.Type {
	case "edit":
		bid, err := buffer.ParseID(msg.Buffer)
		if err != nil {
			cl.sendError(err.Error())
			return
		}
		if err := coord.OnBufferChanged(bid, msg.Text); err != nil {
			cl.sendError(err.Error())
		}

	case "open_preview":
		target, created, err := coord.RequestDetachedPreview()
		if err != nil {
			cl.sendError(err.Error())
			return
		}
		dt, ok := target.(*DetachedTarget)
		if !ok {
			cl.sendError("preview target is not a window")
			return
		}
		cl.sendJSON(map[string]interface{}{
			"type":      "preview_opened",
			"target":    dt.ID().String(),
			"url":       dt.Path(),
			"created":   created,
			"timestamp": time.Now().Unix(),
		})

	case "refresh":
		coord.Refresh()

	case "ui":
		if msg.Action == nil {
			cl.sendError("missing action")
			return
		}
		state, err := ws.Dispatch(*msg.Action)
		if err != nil {
			cl.sendError(err.Error())
			return
		}
		h.hub.broadcast(ws.ID, map[string]interface{}{
			"type":      "ui_state",
			"ui":        state,
			"timestamp": time.Now().Unix(),
		})

	case "ping":
		cl.sendJSON(map[string]interface{}{"type": "pong"})

	default:
		cl.sendError("unknown message type")
	}
}

// modifiedMessage tells pages whether leaving would lose edits
func modifiedMessage(ws *workspace.Workspace) map[string]interface{} {
	coord := ws.Coordinator()
	return map[string]interface{}{
		"type":      "modified",
		"modified":  coord.IsModified(),
		"buffers":   coord.ModifiedBuffers(),
		"timestamp": time.Now().Unix(),
	}
}
