package server

import "github.com/gin-gonic/gin"

// RegisterRoutes wires all /api endpoints onto the router.
//
//	GET    /api/health
//	GET    /api/status
//	GET    /api/system/info
//	GET    /api/system/storage
//	GET    /api/config
//	POST   /api/config
//	POST   /api/config/reset
//	GET    /api/backups
//	POST   /api/backups
//	GET    /api/backups/:id
//	POST   /api/backups/:id/validate
//	POST   /api/backups/:id/restore
//	DELETE /api/backups/:id
//	POST   /api/breaking-changes/update
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	api := router.Group("/api")
	{
		api.GET("/health", h.HandleHealth)
		api.GET("/status", h.HandleStatus)
		api.GET("/system/info", h.HandleSystemInfo)
		api.GET("/system/storage", h.HandleSystemStorage)

		api.GET("/config", h.HandleGetConfig)
		api.POST("/config", h.HandleSaveConfig)
		api.POST("/config/reset", h.HandleResetConfig)

		api.GET("/backups", h.HandleListBackups)
		api.POST("/backups", h.HandleCreateBackup)
		api.GET("/backups/:id", h.HandleGetBackup)
		api.POST("/backups/:id/validate", h.HandleValidateBackup)
		api.POST("/backups/:id/restore", h.HandleRestoreBackup)
		api.DELETE("/backups/:id", h.HandleDeleteBackup)

		api.POST("/breaking-changes/update", h.HandleUpdateChanges)
	}
}

// NewRouter builds a release-mode gin engine with the API registered.
func NewRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	RegisterRoutes(router, h)
	return router
}
