package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ExportHandler proxies document-generation requests to the export service,
// which turns rendered conversation content into downloadable files.
type ExportHandler struct {
	baseURL string
	client  *http.Client
}

// NewExportHandler creates an ExportHandler forwarding to baseURL. An empty
// baseURL disables the endpoint.
func NewExportHandler(baseURL string) *ExportHandler {
	return &ExportHandler{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate handles POST /api/generate-file - forwards the request body to
// the export service and relays its response verbatim.
func (h *ExportHandler) Generate(c *gin.Context) {
	if h.baseURL == "" {
		sendError(c, http.StatusServiceUnavailable, "EXPORT_DISABLED", "Export service is not configured")
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, h.baseURL+"/generate-file", c.Request.Body)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build export request")
		return
	}
	req.Header.Set("Content-Type", c.ContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("export service unreachable")
		sendError(c, http.StatusBadGateway, "EXPORT_UNAVAILABLE", "Export service is unreachable")
		return
	}
	defer resp.Body.Close()

	c.Status(resp.StatusCode)
	for _, key := range []string{"Content-Type", "Content-Disposition", "Content-Length"} {
		if v := resp.Header.Get(key); v != "" {
			c.Header(key, v)
		}
	}
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Warn().Err(err).Msg("export response relay truncated")
	}
}

// RegisterRoutes registers the export route on a Gin router group.
func (h *ExportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate-file", h.Generate)
}
