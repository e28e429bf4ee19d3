package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halalscan/backend/internal/domain"
	"github.com/halalscan/backend/internal/usecase"
)

// catalogStatus reports whether the product catalog has finished loading
type catalogStatus interface {
	Loaded() bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scanner *usecase.ScanService
	catalog catalogStatus
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil scanner makes every scan
// endpoint answer 503.
func NewHandler(scanner *usecase.ScanService, catalog catalogStatus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		scanner: scanner,
		catalog: catalog,
		logger:  logger,
	}
}

type barcodeScanRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	Language string `json:"language"`
	Enrich   bool   `json:"enrich"`
	Model    string `json:"model"`
}

type textScanRequest struct {
	Text     string `json:"text" binding:"required"`
	Barcode  string `json:"barcode"`
	Language string `json:"language"`
	Model    string `json:"model"`
}

// healthAnalyzeRequest carries an optional photo as base64 in "image"
type healthAnalyzeRequest struct {
	Barcode  string               `json:"barcode"`
	Text     string               `json:"text"`
	Image    []byte               `json:"image"`
	MimeType string               `json:"mimeType"`
	Profile  domain.HealthProfile `json:"profile"`
	Language string               `json:"language"`
	Model    string               `json:"model"`
}

type ingredientsCheckRequest struct {
	Ingredients []string `json:"ingredients"`
	Label       string   `json:"label"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	loaded := false
	if h.catalog != nil {
		loaded = h.catalog.Loaded()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "halalscan-backend",
		"version":       "1.0.0",
		"catalogLoaded": loaded,
	})
}

// ScanBarcode handles POST /api/v1/scan/barcode
func (h *Handler) ScanBarcode(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req barcodeScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	h.scan(c, &domain.ScanRequest{
		Barcode:  req.Barcode,
		Language: req.Language,
		Model:    req.Model,
		Enrich:   req.Enrich,
	})
}

// ScanText handles POST /api/v1/scan/text
func (h *Handler) ScanText(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req textScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	h.scan(c, &domain.ScanRequest{
		Text:     req.Text,
		Barcode:  req.Barcode,
		Language: req.Language,
		Model:    req.Model,
	})
}

// ScanImage handles POST /api/v1/scan/image (multipart, field "image")
func (h *Handler) ScanImage(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	maxBytes := h.scanner.MaxImageBytes()
	// One extra MiB covers the multipart framing and the text fields
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	header, err := c.FormFile("image")
	if err != nil {
		h.badRequest(c, fmt.Errorf("image file is required: %w", err))
		return
	}
	if header.Size > maxBytes {
		h.badRequest(c, fmt.Errorf("image exceeds %d bytes", maxBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer file.Close()

	// The part header size is client supplied, so the read is capped too
	image, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	if int64(len(image)) > maxBytes {
		h.badRequest(c, fmt.Errorf("image exceeds %d bytes", maxBytes))
		return
	}

	// Non-image content types are re-detected by the scan service
	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = ""
	}

	h.scan(c, &domain.ScanRequest{
		Image:    image,
		MimeType: mimeType,
		Barcode:  c.PostForm("barcode"),
		Language: c.PostForm("language"),
		Model:    c.PostForm("model"),
	})
}

// AnalyzeHealth handles POST /api/v1/health/analyze
func (h *Handler) AnalyzeHealth(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	// base64 grows the image by a third; the rest is headroom for the profile
	maxBody := h.scanner.MaxImageBytes()/3*4 + 64<<10
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	var req healthAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	language := req.Language
	if language == "" {
		language = c.GetString(languageKey)
	}

	outcome, err := h.scanner.AnalyzeHealth(c.Request.Context(), &domain.HealthRequest{
		Barcode:    req.Barcode,
		Text:       req.Text,
		Image:      req.Image,
		MimeType:   req.MimeType,
		Profile:    req.Profile,
		Credential: c.GetHeader(advisorKeyHeader),
		Language:   language,
		Model:      req.Model,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// GetProduct handles GET /api/v1/products/:barcode
func (h *Handler) GetProduct(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	product, findings, err := h.scanner.LookupProduct(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":       product,
		"localFindings": findings,
	})
}

// CheckIngredients handles POST /api/v1/ingredients/check. It accepts a list,
// a raw printed label, or both.
func (h *Handler) CheckIngredients(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req ingredientsCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	ingredients := append([]string{}, req.Ingredients...)
	if req.Label != "" {
		ingredients = append(ingredients, usecase.ParseIngredientLabel(req.Label)...)
	}
	if len(ingredients) == 0 {
		h.respondError(c, fmt.Errorf("%w: ingredients or label is required", domain.ErrInvalidRequest))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredients":   ingredients,
		"localFindings": h.scanner.CheckIngredients(ingredients),
	})
}

func (h *Handler) scan(c *gin.Context, req *domain.ScanRequest) {
	req.Credential = c.GetHeader(advisorKeyHeader)
	if req.Language == "" {
		req.Language = c.GetString(languageKey)
	}

	outcome, err := h.scanner.Scan(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "scan service not configured",
		})
		return false
	}
	return true
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": fmt.Sprintf("invalid request: %v", err),
	})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
