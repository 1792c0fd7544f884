// Package server is the thin REST layer over the backup manager. Handlers
// only marshal requests and responses; all logic lives in the manager and
// its collaborators.
package server

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kebairia/habackup/internal/logger"
	"github.com/kebairia/habackup/internal/manager"
	"github.com/kebairia/habackup/internal/settings"
	"github.com/kebairia/habackup/internal/supervisor"
)

// AddonVersion is reported by the health endpoint.
const AddonVersion = "1.0.0"

// StatusClient is the slice of the supervisor API the status and system
// endpoints need.
type StatusClient interface {
	GetCoreInfo(ctx context.Context) (*supervisor.CoreInfo, error)
	GetSupervisorInfo(ctx context.Context) (*supervisor.SupervisorInfo, error)
	GetHostInfo(ctx context.Context) (*supervisor.HostInfo, error)
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	mgr      *manager.Manager
	settings *settings.Store
	status   StatusClient
	log      logger.Logger
	started  time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(mgr *manager.Manager, cfg *settings.Store, status StatusClient, log logger.Logger) *Handlers {
	return &Handlers{
		mgr:      mgr,
		settings: cfg,
		status:   status,
		log:      log,
		started:  time.Now(),
	}
}

// respondOK writes the success envelope.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// respondError writes the failure envelope with a human-readable message,
// never a stack trace.
func respondError(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"success": false, "error": err.Error()})
}

// HandleHealth implements GET /api/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   AddonVersion,
	})
}

// HandleStatus implements GET /api/status.
func (h *Handlers) HandleStatus(c *gin.Context) {
	core, err := h.status.GetCoreInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	sup, err := h.status.GetSupervisorInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	respondOK(c, gin.H{
		"homeassistant": gin.H{
			"version":          core.Version,
			"state":            core.State,
			"update_available": core.UpdateAvailable,
		},
		"supervisor": gin.H{
			"version": sup.Version,
			"healthy": sup.Healthy,
		},
		"addon": gin.H{
			"status": "running",
			"uptime": time.Since(h.started).Round(time.Second).String(),
		},
	})
}

// HandleSystemInfo implements GET /api/system/info.
func (h *Handlers) HandleSystemInfo(c *gin.Context) {
	host, err := h.status.GetHostInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, gin.H{
		"hostname":         host.Hostname,
		"operating_system": host.OperatingSystem,
	})
}

// HandleSystemStorage implements GET /api/system/storage.
func (h *Handlers) HandleSystemStorage(c *gin.Context) {
	host, err := h.status.GetHostInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	total := host.DiskTotal
	if total == 0 {
		total = 1
	}
	respondOK(c, gin.H{
		"used":       host.DiskUsed,
		"total":      host.DiskTotal,
		"free":       host.DiskFree,
		"percentage": math.Round(host.DiskUsed/total*100*100) / 100,
	})
}

// HandleGetConfig implements GET /api/config.
func (h *Handlers) HandleGetConfig(c *gin.Context) {
	respondOK(c, h.settings.Get())
}

// HandleSaveConfig implements POST /api/config. Invalid values are clamped
// by the settings store, not rejected.
func (h *Handlers) HandleSaveConfig(c *gin.Context) {
	current := h.settings.Get()
	if err := c.ShouldBindJSON(&current); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.settings.Save(current); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, h.settings.Get())
}

// HandleResetConfig implements POST /api/config/reset.
func (h *Handlers) HandleResetConfig(c *gin.Context) {
	if err := h.settings.Reset(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, gin.H{"message": "Configuration reset to defaults"})
}

// HandleListBackups implements GET /api/backups.
func (h *Handlers) HandleListBackups(c *gin.Context) {
	backups, err := h.mgr.ListBackups(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, backups)
}

// HandleGetBackup implements GET /api/backups/:id.
func (h *Handlers) HandleGetBackup(c *gin.Context) {
	details, err := h.mgr.GetBackupDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "backup not found"})
		return
	}
	respondOK(c, details)
}

// createBackupRequest is the POST /api/backups payload.
type createBackupRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password"`
}

// HandleCreateBackup implements POST /api/backups.
func (h *Handlers) HandleCreateBackup(c *gin.Context) {
	var req createBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := h.mgr.CreateBackup(c.Request.Context(), req.Name, req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, result)
}

// HandleValidateBackup implements POST /api/backups/:id/validate. The
// report itself carries failure status; the HTTP call succeeds either way.
func (h *Handlers) HandleValidateBackup(c *gin.Context) {
	report := h.mgr.ValidateBackup(c.Request.Context(), c.Param("id"))
	respondOK(c, report)
}

// restoreBackupRequest is the POST /api/backups/:id/restore payload.
type restoreBackupRequest struct {
	Password string `json:"password"`
}

// HandleRestoreBackup implements POST /api/backups/:id/restore.
func (h *Handlers) HandleRestoreBackup(c *gin.Context) {
	var req restoreBackupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}
	result, err := h.mgr.RestoreBackup(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, result)
}

// HandleDeleteBackup implements DELETE /api/backups/:id.
func (h *Handlers) HandleDeleteBackup(c *gin.Context) {
	if err := h.mgr.DeleteBackup(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, gin.H{"message": "Backup deleted"})
}

// HandleUpdateChanges implements POST /api/breaking-changes/update.
func (h *Handlers) HandleUpdateChanges(c *gin.Context) {
	added, err := h.mgr.UpdateBreakingChanges()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondOK(c, gin.H{"updated": added})
}
