package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	ImportCount   int    `json:"importCount"`   // 累计导入次数
	OverrideCount int    `json:"overrideCount"` // 已持久化的字段映射覆盖数
	TemplatePath  string `json:"templatePath"`  // 当前结算模板路径
	SheetName     string `json:"sheetName"`     // 协议工作表名
	StrictMode    bool   `json:"strictMode"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	importCount, err := h.store.CountImports()
	if err != nil {
		importCount = 0
	}

	overrides, err := h.store.ListFieldOverrides()
	overrideCount := 0
	if err == nil {
		overrideCount = len(overrides)
	}

	c.JSON(http.StatusOK, StatusResponse{
		ImportCount:   importCount,
		OverrideCount: overrideCount,
		TemplatePath:  h.cfg.Template.Path,
		SheetName:     h.cfg.Protocol.SheetName,
		StrictMode:    h.cfg.Protocol.StrictMode,
	})
}
