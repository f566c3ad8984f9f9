package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fraudscope/internal/charts"
	"fraudscope/internal/engine"
	"fraudscope/internal/monitoring"
	"fraudscope/internal/repository"
	"fraudscope/internal/schema"
	"fraudscope/internal/storage"
)

type AnalysisHandler struct {
	baseCfg  engine.Config
	store    *storage.Store
	renderer *charts.Renderer
	runs     *repository.RunRepository
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func NewAnalysisHandler(
	baseCfg engine.Config,
	store *storage.Store,
	renderer *charts.Renderer,
	runs *repository.RunRepository,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		baseCfg:  baseCfg,
		store:    store,
		renderer: renderer,
		runs:     runs,
		metrics:  metrics,
		logger:   logger,
	}
}

// Analyze accepts a multipart CSV upload, scores the batch, renders the
// result charts in the requested theme, and records the run summary.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	started := time.Now()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.metrics.ObserveRun("rejected", 0, 0, time.Since(started))
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	cfg, err := h.runConfig(c)
	if err != nil {
		h.metrics.ObserveRun("rejected", 0, 0, time.Since(started))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eng, err := engine.New(cfg, h.logger)
	if err != nil {
		h.metrics.ObserveRun("rejected", 0, 0, time.Since(started))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := storage.NewRunID()
	uploadPath, err := h.store.SaveUpload(runID, fileHeader)
	if err != nil {
		h.logger.Error("failed to save upload", zap.Error(err))
		h.metrics.ObserveRun("error", 0, 0, time.Since(started))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	header, rows, err := storage.ReadCSV(uploadPath)
	if err != nil {
		h.metrics.ObserveRun("rejected", 0, 0, time.Since(started))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := schema.NewNormalizer(cfg.MaxUnparsableRatio).Normalize(header, rows)
	if err != nil {
		status := http.StatusInternalServerError
		var schemaErr *schema.SchemaError
		var qualityErr *schema.DataQualityError
		switch {
		case errors.As(err, &schemaErr):
			status = http.StatusBadRequest
		case errors.As(err, &qualityErr):
			status = http.StatusUnprocessableEntity
		}
		h.metrics.ObserveRun("rejected", 0, 0, time.Since(started))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	report, err := eng.Run(c.Request.Context(), ds)
	if err != nil {
		h.logger.Error("analysis run failed", zap.String("run_id", runID), zap.Error(err))
		h.metrics.ObserveRun("error", 0, 0, time.Since(started))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	theme := charts.ThemeByName(c.Query("theme"))
	graphFiles, err := h.renderer.RenderAll(runID, report.Results, theme)
	if err != nil {
		h.logger.Error("chart rendering failed", zap.String("run_id", runID), zap.Error(err))
		h.metrics.ObserveRun("error", 0, 0, time.Since(started))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chart rendering failed"})
		return
	}
	graphs := make(map[string]string, len(graphFiles))
	for key, filename := range graphFiles {
		graphs[key] = "/outputs/" + filename
	}

	run := &repository.AnalysisRun{
		ID:                runID,
		Filename:          storage.SanitizeFilename(fileHeader.Filename),
		TotalTransactions: report.Summary.TotalTransactions,
		AnomalyCount:      report.Summary.AnomalyCount,
		HighRiskPercent:   report.Summary.HighRiskPercent,
		DegradedMode:      report.Summary.DegradedMode,
		Note:              report.Summary.Note,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.runs.Save(c.Request.Context(), run); err != nil {
		h.logger.Error("failed to persist run summary", zap.String("run_id", runID), zap.Error(err))
	}

	h.metrics.ObserveRun("ok", report.Summary.TotalTransactions, report.Summary.AnomalyCount, time.Since(started))

	c.JSON(http.StatusOK, gin.H{
		"run_id":  runID,
		"summary": report.Summary,
		"results": report.Results,
		"graphs":  graphs,
	})
}

// runConfig applies per-request form overrides on top of the configured
// engine defaults.
func (h *AnalysisHandler) runConfig(c *gin.Context) (engine.Config, error) {
	cfg := h.baseCfg

	overrides := []struct {
		field string
		apply func(string) error
	}{
		{"contamination_rate", func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			cfg.ContaminationRate = v
			return err
		}},
		{"impossible_travel_kmh", func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			cfg.ImpossibleTravelKMH = v
			return err
		}},
		{"failed_login_threshold", func(s string) error {
			v, err := strconv.Atoi(s)
			cfg.FailedLoginThreshold = v
			return err
		}},
		{"min_user_history", func(s string) error {
			v, err := strconv.Atoi(s)
			cfg.MinUserHistory = v
			return err
		}},
		{"random_seed", func(s string) error {
			v, err := strconv.ParseInt(s, 10, 64)
			cfg.RandomSeed = v
			return err
		}},
	}

	for _, o := range overrides {
		if s := c.PostForm(o.field); s != "" {
			if err := o.apply(s); err != nil {
				return cfg, errors.New("invalid " + o.field)
			}
		}
	}
	return cfg, cfg.Validate()
}

// ListRuns returns recent run summaries, newest first.
func (h *AnalysisHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one run summary by id.
func (h *AnalysisHandler) GetRun(c *gin.Context) {
	run, err := h.runs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// ServeOutput serves a rendered chart image from the output folder.
func (h *AnalysisHandler) ServeOutput(c *gin.Context) {
	path, err := h.store.OutputPath(c.Param("filename"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}
	c.File(path)
}
