package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codecanvas/internal/domain/archive"
	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview/sandbox"
	"github.com/GriffinCanCode/codecanvas/internal/domain/starter"
	"github.com/GriffinCanCode/codecanvas/internal/domain/workspace"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/fetch"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

var (
	ErrHeadlessDisabled  = errors.New("headless preview is disabled")
	ErrRenderDisabled    = errors.New("render pool is disabled")
	ErrImportURLDisabled = errors.New("importing from URLs is disabled")
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, id.ErrInvalidID),
		errors.Is(err, buffer.ErrUnknownBuffer),
		errors.Is(err, starter.ErrUnknownTemplate),
		errors.Is(err, workspace.ErrUnknownAction),
		errors.Is(err, workspace.ErrInvalidTheme),
		errors.Is(err, archive.ErrUnsupportedFormat),
		errors.Is(err, archive.ErrEmptyProject),
		errors.Is(err, sandbox.ErrInvalidXPath),
		errors.Is(err, fetch.ErrUnsupportedURL):
		return http.StatusBadRequest
	case errors.Is(err, archive.ErrFileTooLarge),
		errors.Is(err, fetch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, preview.ErrCoordinatorClosed),
		errors.Is(err, preview.ErrTargetClosed):
		return http.StatusGone
	case errors.Is(err, ErrHeadlessDisabled),
		errors.Is(err, ErrImportURLDisabled):
		return http.StatusConflict
	case errors.As(err, new(*fetch.StatusError)):
		return http.StatusBadGateway
	case errors.Is(err, workspace.ErrTooManyWorkspaces),
		errors.Is(err, fetch.ErrUnavailable),
		errors.Is(err, ErrRenderDisabled),
		errors.Is(err, sandbox.ErrRuntimeClosed),
		errors.Is(err, sandbox.ErrPoolClosed),
		errors.Is(err, sandbox.ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": msg} and records it on the context
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
