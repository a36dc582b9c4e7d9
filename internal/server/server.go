package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/webaudit/scanner/internal/config"
	"github.com/webaudit/scanner/internal/model"
	"github.com/webaudit/scanner/internal/scan"
	"github.com/webaudit/scanner/internal/sqlmap"
	"github.com/webaudit/scanner/internal/store"
)

func Run() error {
	cfg := config.Load()

	store.Init()
	log.Println("[server] store initialized")

	orchestrator := scan.New(cfg)

	r := gin.Default()
	Register(r, orchestrator)

	srv := &http.Server{
		Addr:           cfg.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	log.Printf("[server] listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

// Register wires the scan routes onto a router. Split out so tests can
// mount the handlers on their own engine.
func Register(r *gin.Engine, orchestrator *scan.Orchestrator) {
	h := &handlers{orchestrator: orchestrator}

	api := r.Group("/api")
	api.POST("/scan", h.scanFull)
	api.POST("/scan/base", h.scanBase)
	api.POST("/scan/deep", h.scanDeep)
	api.GET("/scan/status/:id", h.scanStatus)
	api.GET("/scan/result/:id", h.scanResult)
}

type handlers struct {
	orchestrator *scan.Orchestrator
}

type scanRequest struct {
	URL         string       `json:"url" binding:"required"`
	MaxPages    int          `json:"max_pages"`
	Concurrency int          `json:"concurrency"`
	RunSqlmap   bool         `json:"run_sqlmap"`
	SqlmapArgs  *sqlmap.Args `json:"sqlmap_args,omitempty"`
}

type deepRequest struct {
	URL        string       `json:"url"`
	ScanID     string       `json:"scan_id" binding:"required"`
	SqlmapArgs *sqlmap.Args `json:"sqlmap_args,omitempty"`
}

func (h *handlers) scanFull(ctx *gin.Context) {
	var req scanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	base := scan.BaseRequest{URL: req.URL, MaxPages: req.MaxPages, Concurrency: req.Concurrency}
	_, rep, err := h.orchestrator.RunFull(ctx.Request.Context(), base, req.RunSqlmap, req.SqlmapArgs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sqlmap.ErrBadArgument) {
			status = http.StatusBadRequest
		}
		log.Printf("[scanFull] scan failed: %v", err)
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"report": rep.Path, "parts": rep.Parts})
}

func (h *handlers) scanBase(ctx *gin.Context) {
	var req scanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	base := scan.BaseRequest{URL: req.URL, MaxPages: req.MaxPages, Concurrency: req.Concurrency}
	job, rep, err := h.orchestrator.RunBase(ctx.Request.Context(), base)
	if err != nil {
		log.Printf("[scanBase] scan failed: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"scan_id": job.ID, "report": rep.Path, "parts": rep.Parts})
}

func (h *handlers) scanDeep(ctx *gin.Context) {
	var req deepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	findings, err := h.orchestrator.RunDeep(ctx.Request.Context(), req.ScanID, req.SqlmapArgs)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrScanNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		case errors.Is(err, scan.ErrSqlmapActive):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, sqlmap.ErrBadArgument):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[scanDeep] deep scan failed for id=%s: %v", req.ScanID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"parts": gin.H{"sqlmap": findings}})
}

func (h *handlers) scanStatus(ctx *gin.Context) {
	id := ctx.Param("id")

	job, ok := store.GetJob(id)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	ctx.JSON(http.StatusOK, job)
}

func (h *handlers) scanResult(ctx *gin.Context) {
	id := ctx.Param("id")

	job, ok := store.GetJob(id)
	if !ok || job.Status == model.StatusRunning {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "scan not ready"})
		return
	}

	rep, ok := store.GetReport(id)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	ctx.JSON(http.StatusOK, rep)
}
