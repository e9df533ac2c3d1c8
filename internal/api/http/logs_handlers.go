package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxLogEntries caps one batch from a page
const maxLogEntries = 100

// PageLogEntry is a log entry reported by an editor or preview page
type PageLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context"`
	Timestamp string                 `json:"timestamp"`
}

// PageLogRequest is a batch of logs from a page
type PageLogRequest struct {
	Source    string         `json:"source"` // "editor" or "preview"
	Workspace string         `json:"workspace"`
	Entries   []PageLogEntry `json:"entries"`
}

// StreamLogs records logs forwarded by the browser pages, such as
// uncaught errors inside a preview frame
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req PageLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}

	if req.Source != "editor" && req.Source != "preview" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > maxLogEntries {
		req.Entries = req.Entries[:maxLogEntries]
	}

	logger := h.logger.Named("page").With(
		zap.String("source", req.Source),
		zap.String("workspace", req.Workspace),
	)
	for _, entry := range req.Entries {
		h.processPageLogEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_processed": len(req.Entries),
		"timestamp":         time.Now().Unix(),
	})
}

// processPageLogEntry logs a single page entry at its level
func (h *Handlers) processPageLogEntry(logger *zap.Logger, entry PageLogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("page_timestamp", entry.Timestamp))

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
