package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/codecanvas/internal/domain/archive"
	"github.com/GriffinCanCode/codecanvas/internal/domain/workspace"
)

// Export downloads the workspace buffers as a project archive
func (h *Handlers) Export(c *gin.Context) {
	defer h.tracked.Track(c, "archive", "export")()

	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	format, err := archive.ParseFormat(c.Query("format"))
	if err != nil {
		h.recordExport(c.Query("format"), "error")
		fail(c, err)
		return
	}

	data, err := archive.Export(ws.Coordinator().Snapshot(), format)
	if err != nil {
		h.recordExport(string(format), "error")
		fail(c, err)
		return
	}
	h.recordExport(string(format), "ok")

	name := archive.FileName(h.options.ExportBaseName, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// Import replaces the workspace buffers with the files of an uploaded
// project archive. The upload is either a multipart "file" field or the
// raw request body.
func (h *Handlers) Import(c *gin.Context) {
	defer h.tracked.Track(c, "archive", "import")()

	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	data, err := h.readUpload(c)
	if err != nil {
		h.recordImport("unknown", "error")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d bytes", h.options.ImportMaxBytes),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.load(c, ws, data)
}

// Fetcher downloads remote project archives
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type importURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// ImportURL replaces the workspace buffers with a project archive fetched
// from {"url": ...}
func (h *Handlers) ImportURL(c *gin.Context) {
	defer h.tracked.Track(c, "archive", "import_url")()

	if h.fetcher == nil {
		fail(c, ErrImportURLDisabled)
		return
	}
	ws, err := h.workspace(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req importURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		h.recordImport("unknown", "error")
		fail(c, err)
		return
	}
	h.load(c, ws, data)
}

// load decodes an archive into the workspace and presents it once
func (h *Handlers) load(c *gin.Context, ws *workspace.Workspace, data []byte) {
	imported, err := archive.Import(data)
	if err != nil {
		h.recordImport("unknown", "error")
		fail(c, err)
		return
	}

	coord := ws.Coordinator()
	if err := coord.Load(imported.Buffers); err != nil {
		h.recordImport(string(imported.Format), "error")
		fail(c, err)
		return
	}
	h.recordImport(string(imported.Format), "ok")

	h.logger.Info("Project imported",
		zap.String("workspace", ws.ID.String()),
		zap.String("format", string(imported.Format)),
		zap.Int("files", len(imported.Found)),
	)

	c.JSON(http.StatusOK, gin.H{
		"format":   imported.Format,
		"found":    imported.Found,
		"buffers":  imported.Buffers,
		"revision": coord.Revision(),
		"modified": coord.IsModified(),
	})
}

func (h *Handlers) readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.options.ImportMaxBytes)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return io.ReadAll(c.Request.Body)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handlers) recordExport(format, status string) {
	if h.metrics != nil {
		h.metrics.RecordExport(format, status)
	}
}

func (h *Handlers) recordImport(format, status string) {
	if h.metrics != nil {
		h.metrics.RecordImport(format, status)
	}
}
