package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"protokoll/internal/pipeline"
)

// FillResponse 填充响应
type FillResponse struct {
	Result        *pipeline.Result `json:"result"`
	DownloadToken string           `json:"downloadToken,omitempty"`
}

// Fill 导入协议并填充结算模板，返回完整结果和下载令牌
// POST /api/fill
func (h *Handler) Fill(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	tempFilePath := filepath.Join(os.TempDir(), fmt.Sprintf("protokoll_fill_%d_%s", time.Now().Unix(), files[0].Filename))
	if err := c.SaveUploadedFile(files[0], tempFilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save upload"})
		return
	}
	defer os.Remove(tempFilePath)

	templatePath := c.PostForm("templatePath")

	result, err := h.coordinator.Execute(pipeline.RunOptions{
		FilePath:     tempFilePath,
		FillTemplate: true,
		TemplatePath: templatePath,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := FillResponse{Result: result}
	if result.ExportPath != "" {
		resp.DownloadToken = h.downloads.put(result.ExportPath, 30*time.Minute)
	}

	c.JSON(http.StatusOK, resp)
}
