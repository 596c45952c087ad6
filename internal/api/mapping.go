package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"protokoll/internal/cellmap"
	"protokoll/internal/model"
)

// mappingSessionStore 交互式映射会话的内存存储
// 候选快照在会话创建时一次读完，之后不再需要工作簿
type mappingSessionStore struct {
	mu    sync.Mutex
	items map[string]*cellmap.Session
}

func newMappingSessionStore() *mappingSessionStore {
	return &mappingSessionStore{items: make(map[string]*cellmap.Session)}
}

func (s *mappingSessionStore) put(session *cellmap.Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.items[id] = session
	return id
}

func (s *mappingSessionStore) get(id string) (*cellmap.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.items[id]
	return session, ok
}

func (s *mappingSessionStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

type sessionView struct {
	SessionID string      `json:"sessionId"`
	State     string      `json:"state"`
	Fields    []fieldView `json:"fields"`
}

type fieldView struct {
	Name       string                   `json:"name"`
	Chosen     string                   `json:"chosen"`
	Candidates []model.MappingCandidate `json:"candidates"`
}

func viewOf(id string, session *cellmap.Session) sessionView {
	v := sessionView{
		SessionID: id,
		State:     string(session.State()),
	}
	for _, field := range session.Fields() {
		v.Fields = append(v.Fields, fieldView{
			Name:       field,
			Chosen:     session.Chosen(field),
			Candidates: session.Candidates(field),
		})
	}
	return v
}

// CreateMappingSession 上传协议并创建交互式映射会话
// POST /api/mapping/session
func (h *Handler) CreateMappingSession(c *gin.Context) {
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

	tempFilePath := filepath.Join(os.TempDir(), fmt.Sprintf("protokoll_mapping_%d_%s", time.Now().Unix(), files[0].Filename))
	if err := c.SaveUploadedFile(files[0], tempFilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save upload"})
		return
	}
	defer os.Remove(tempFilePath)

	wb, err := excelize.OpenFile(tempFilePath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot open workbook: %v", err)})
		return
	}
	defer wb.Close()

	fields := cellmap.NewFieldCellMap(&h.cfg.Protocol)
	overrides, err := h.store.ListFieldOverrides()
	if err == nil {
		for field, addr := range overrides {
			_ = fields.ApplyOverride(field, addr)
		}
	}

	resolver, err := cellmap.NewResolver(&h.cfg.Protocol, fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	session := cellmap.NewSession(resolver, wb, h.cfg.Protocol.SheetName)
	id := h.sessions.put(session)

	c.JSON(http.StatusOK, viewOf(id, session))
}

// GetMappingSession 读取会话快照
// GET /api/mapping/session/:id
func (h *Handler) GetMappingSession(c *gin.Context) {
	id := c.Param("id")
	session, ok := h.sessions.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, viewOf(id, session))
}

// SelectMapping 人工改选某字段的候选地址
// POST /api/mapping/session/:id/select
func (h *Handler) SelectMapping(c *gin.Context) {
	id := c.Param("id")
	session, ok := h.sessions.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req struct {
		Field   string `json:"field" binding:"required"`
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.Select(req.Field, req.Address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, viewOf(id, session))
}

// UnmapField 显式标记字段无映射
// POST /api/mapping/session/:id/unmap
func (h *Handler) UnmapField(c *gin.Context) {
	id := c.Param("id")
	session, ok := h.sessions.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req struct {
		Field string `json:"field" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.MarkUnmapped(req.Field); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, viewOf(id, session))
}

// ConfirmMapping 确认会话；通过则把映射决定持久化
// POST /api/mapping/session/:id/confirm
func (h *Handler) ConfirmMapping(c *gin.Context) {
	id := c.Param("id")
	session, ok := h.sessions.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	decisions, errs := session.Confirm()
	if len(errs) > 0 {
		// 校验失败：会话停在 Editing，错误交给人处理
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"state":  string(session.State()),
			"errors": errs,
		})
		return
	}

	for _, d := range decisions {
		if d.Unmapped || d.Address == "" {
			continue
		}
		if err := h.store.SaveFieldOverride(d.Field, d.Address); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	h.sessions.delete(id)
	c.JSON(http.StatusOK, gin.H{
		"state":     string(session.State()),
		"decisions": decisions,
	})
}

// CancelMapping 放弃会话，无副作用
// POST /api/mapping/session/:id/cancel
func (h *Handler) CancelMapping(c *gin.Context) {
	id := c.Param("id")
	session, ok := h.sessions.get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	session.Cancel()
	h.sessions.delete(id)
	c.JSON(http.StatusOK, gin.H{"state": string(session.State())})
}
