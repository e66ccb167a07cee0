package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-categorizer/internal/config"
	"github.com/insightdelivered/statement-categorizer/internal/logger"
	"github.com/insightdelivered/statement-categorizer/internal/metrics"
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
	"github.com/insightdelivered/statement-categorizer/internal/pipeline"
	"github.com/insightdelivered/statement-categorizer/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// PageBreak separates pages in the extractedText form field.
const PageBreak = "\n---PAGE_BREAK---\n"

// CategorizeResponse is the JSON response from the /api/categorize endpoint.
type CategorizeResponse struct {
	Success      bool                     `json:"success"`
	Error        string                   `json:"error,omitempty"`
	Issuer       string                   `json:"issuer,omitempty"`
	RunID        string                   `json:"runId,omitempty"`
	Transactions []models.Transaction     `json:"transactions"`
	Totals       []pipeline.CategoryTotal `json:"totals"`
	Documents    []models.DocumentStats   `json:"documents,omitempty"`
	CSV          string                   `json:"csv,omitempty"`
	Count        int                      `json:"count"`
	Version      string                   `json:"version,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Config     *config.Config
	Classifier pipeline.Categorizer
	Source     pipeline.TextSource
	Metrics    *metrics.Pipeline
	Gatherer   prometheus.Gatherer
	Logger     zerolog.Logger
	StaticDir  string
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/categorize", h.HandleCategorize)
	if h.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

// HandleCategorize runs one uploaded statement through the pipeline.
//
// Form fields: file (PDF) or extractedText (pages joined by PageBreak),
// name (document name, defaults to the upload's file name), issuer
// (bradesco, nubank or auto), holder (cardholder name for anchors) and
// header ("false" drops the CSV metadata rows).
func (h *Handler) HandleCategorize(c *fiber.Ctx) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("Internal server error (recovered from crash): %v", rec))
		}
	}()

	log := h.Logger.With().Str("remote", c.IP()).Logger()
	ctx := logger.WithContext(c.UserContext(), log)

	name := c.FormValue("name")
	pages := splitPages(c.FormValue("extractedText"))

	if len(pages) == 0 {
		fileHeader, ferr := c.FormFile("file")
		if ferr != nil {
			return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file' or 'extractedText'.")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
			return writeError(c, fiber.StatusBadRequest, "Only PDF files are supported.")
		}
		if name == "" {
			name = filepath.Base(fileHeader.Filename)
		}
		if h.Source == nil {
			return writeError(c, fiber.StatusServiceUnavailable, "PDF extraction is not available on this server.")
		}

		tmpDir, terr := os.MkdirTemp("", "statement-*")
		if terr != nil {
			return writeError(c, fiber.StatusInternalServerError, "Failed to create temp dir.")
		}
		defer os.RemoveAll(tmpDir)

		tmpPath := filepath.Join(tmpDir, "upload.pdf")
		if serr := c.SaveFile(fileHeader, tmpPath); serr != nil {
			return writeError(c, fiber.StatusInternalServerError, "Failed to save uploaded file.")
		}

		var xerr error
		pages, xerr = h.Source.Pages(tmpPath)
		if xerr != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", xerr))
		}
	}

	issuer, ierr := parser.ParseIssuer(c.FormValue("issuer"))
	if ierr != nil {
		return writeError(c, fiber.StatusBadRequest, ierr.Error())
	}
	if issuer == "" {
		detected, derr := parser.AutoDetect(pages)
		if derr != nil {
			return writeError(c, fiber.StatusUnprocessableEntity, derr.Error())
		}
		issuer = detected
	}

	cfg := *h.Config
	if holder := c.FormValue("holder"); holder != "" {
		cfg.HolderName = holder
	}
	profile, perr := cfg.Profile(issuer)
	if perr != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(perr, parser.ErrUnknownIssuer) {
			status = fiber.StatusBadRequest
		}
		return writeError(c, status, perr.Error())
	}

	driver := pipeline.NewDriver(profile, h.Classifier, pipeline.WithMetrics(h.Metrics))
	result, rerr := driver.Run(ctx, []pipeline.Document{{Name: name, Pages: pages}})
	if rerr != nil {
		return writeError(c, fiber.StatusServiceUnavailable, fmt.Sprintf("Categorization interrupted: %v", rerr))
	}

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
	if werr := csvWriter.Write(&csvBuf, result); werr != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", werr))
	}

	// nil marshals to JSON null, not []
	txns := result.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}

	return c.JSON(CategorizeResponse{
		Success:      true,
		Issuer:       string(issuer),
		RunID:        result.RunID,
		Transactions: txns,
		Totals:       pipeline.Totals(txns),
		Documents:    result.Documents,
		CSV:          csvBuf.String(),
		Count:        len(txns),
		Version:      Version,
	})
}

func splitPages(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.Split(text, PageBreak)
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(CategorizeResponse{
		Success:      false,
		Error:        msg,
		Transactions: []models.Transaction{},
		Totals:       []pipeline.CategoryTotal{},
	})
}
