package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"protokoll/internal/config"
	"protokoll/internal/store"
)

// config 表中的键：运行期可改的配置项，重启后从库里恢复
const (
	cfgKeyTemplatePath = "template_path"
	cfgKeyStrictMode   = "strict_mode"
	cfgKeySearchRange  = "search_range"
)

// applyStoredConfig 把库里持久化的配置项套到当前配置上
// config.toml 提供初值，库里的运行期修改优先
func applyStoredConfig(st *store.Store, cfg *config.AppConfig) {
	stored, err := st.GetAllConfig()
	if err != nil {
		return
	}
	if v, ok := stored[cfgKeyTemplatePath]; ok {
		cfg.Template.Path = v
	}
	if v, ok := stored[cfgKeyStrictMode]; ok {
		cfg.Protocol.StrictMode = v == "true"
	}
	if v, ok := stored[cfgKeySearchRange]; ok {
		cfg.Protocol.SearchRange = v
	}
}

// ConfigResponse 对外暴露的配置子集
type ConfigResponse struct {
	TemplatePath string   `json:"templatePath"`
	SheetName    string   `json:"sheetName"`
	StrictMode   bool     `json:"strictMode"`
	SearchRange  string   `json:"searchRange"`
	Fields       []string `json:"fields"`
}

// UpdateConfigRequest 可更新的配置项（指针区分"未提供"）
type UpdateConfigRequest struct {
	TemplatePath *string `json:"templatePath"`
	StrictMode   *bool   `json:"strictMode"`
	SearchRange  *string `json:"searchRange"`
}

// GetConfig 读取配置
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	fields := make([]string, 0, len(h.cfg.Protocol.Fields))
	for _, f := range h.cfg.Protocol.Fields {
		fields = append(fields, f.Name)
	}

	c.JSON(http.StatusOK, ConfigResponse{
		TemplatePath: h.cfg.Template.Path,
		SheetName:    h.cfg.Protocol.SheetName,
		StrictMode:   h.cfg.Protocol.StrictMode,
		SearchRange:  h.cfg.Protocol.SearchRange,
		Fields:       fields,
	})
}

// UpdateConfig 更新配置：写进 config 表（重启后仍生效）并落盘到 config.toml
// PATCH /api/config
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.TemplatePath != nil {
		h.cfg.Template.Path = *req.TemplatePath
		if err := h.store.SetConfig(cfgKeyTemplatePath, *req.TemplatePath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.StrictMode != nil {
		h.cfg.Protocol.StrictMode = *req.StrictMode
		v := "false"
		if *req.StrictMode {
			v = "true"
		}
		if err := h.store.SetConfig(cfgKeyStrictMode, v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.SearchRange != nil {
		h.cfg.Protocol.SearchRange = *req.SearchRange
		if err := h.store.SetConfig(cfgKeySearchRange, *req.SearchRange); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	if err := config.SaveConfig(h.cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.GetConfig(c)
}
