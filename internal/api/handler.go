package api

import (
	"github.com/gin-gonic/gin"

	"protokoll/internal/config"
	"protokoll/internal/pipeline"
	"protokoll/internal/store"
)

// Handler API 处理器
type Handler struct {
	store       *store.Store
	cfg         *config.AppConfig
	coordinator *pipeline.Coordinator
	downloads   *exportDownloadStore
	sessions    *mappingSessionStore
}

// NewHandler 创建 API 处理器
// 套用 config 表里持久化的运行期配置；协调器跨请求共享，
// 模板字节缓存因此能在重复填充之间复用
func NewHandler(st *store.Store, cfg *config.AppConfig) *Handler {
	applyStoredConfig(st, cfg)

	return &Handler{
		store:       st,
		cfg:         cfg,
		coordinator: pipeline.NewCoordinator(st, cfg),
		downloads:   newExportDownloadStore(),
		sessions:    newMappingSessionStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 配置管理
	router.GET("/config", h.GetConfig)
	router.PATCH("/config", h.UpdateConfig)

	// 协议导入（SSE 进度流）
	router.POST("/import", h.Import)

	// 交互式字段映射
	router.POST("/mapping/session", h.CreateMappingSession)
	router.GET("/mapping/session/:id", h.GetMappingSession)
	router.POST("/mapping/session/:id/select", h.SelectMapping)
	router.POST("/mapping/session/:id/unmap", h.UnmapField)
	router.POST("/mapping/session/:id/confirm", h.ConfirmMapping)
	router.POST("/mapping/session/:id/cancel", h.CancelMapping)

	// 模板填充与导出
	router.POST("/fill", h.Fill)
	router.GET("/export/download/:token", h.DownloadExport)

	// 导入历史
	router.GET("/imports", h.ListImports)
}
