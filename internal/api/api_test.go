package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"protokoll/internal/api"
	"protokoll/internal/config"
	"protokoll/internal/store"
)

func newAPIStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "protokoll.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newRouterWithStore(t *testing.T, st *store.Store) (*gin.Engine, *config.AppConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Protocol.Fields = []config.FieldConfig{
		{Name: "orderNumber", Required: true, Fallbacks: []string{"N5", "M5"}, LabelPattern: `(?i)auftrag(s)?[-\s]?(nummer|nr\.?)`},
		{Name: "facility", Required: true, Fallbacks: []string{"D7"}, LabelPattern: `(?i)anlage(n)?\s*:?\s*$`},
	}

	router := gin.New()
	handler := api.NewHandler(st, cfg)
	handler.RegisterRoutes(router.Group("/api"))
	return router, cfg
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store, *config.AppConfig) {
	t.Helper()
	st := newAPIStore(t)
	router, cfg := newRouterWithStore(t, st)
	return router, st, cfg
}

func protocolUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	wb := excelize.NewFile()
	wb.SetSheetName("Sheet1", "Prüfprotokoll")
	wb.SetCellValue("Prüfprotokoll", "N5", "A12345")
	wb.SetCellValue("Prüfprotokoll", "D7", "Werk Nord")

	xlsx, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "protokoll.xlsx")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(xlsx.Bytes()); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()
	return body, mw.FormDataContentType()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	router, st, cfg := newTestRouter(t)

	if err := st.SaveFieldOverride("orderNumber", "M5"); err != nil {
		t.Fatalf("save override failed: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}

	var resp api.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OverrideCount != 1 {
		t.Fatalf("overrideCount=%d, want 1", resp.OverrideCount)
	}
	if resp.SheetName != cfg.Protocol.SheetName {
		t.Fatalf("sheetName=%q, want %q", resp.SheetName, cfg.Protocol.SheetName)
	}
}

func TestGetConfig(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/config", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}

	var resp api.ConfigResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Fields) != 2 || resp.Fields[0] != "orderNumber" {
		t.Fatalf("fields=%v, want [orderNumber facility]", resp.Fields)
	}
	if resp.SearchRange == "" {
		t.Fatal("searchRange empty")
	}
}

func TestUpdateConfigStrictMode(t *testing.T) {
	router, _, cfg := newTestRouter(t)

	strict := true
	w := doJSON(t, router, http.MethodPatch, "/api/config", api.UpdateConfigRequest{StrictMode: &strict})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}
	if !cfg.Protocol.StrictMode {
		t.Fatal("strict mode not applied")
	}
}

func TestUpdateConfigPersistsToStore(t *testing.T) {
	router, st, _ := newTestRouter(t)

	path := "/srv/vorlagen/abrechnung.xlsx"
	strict := true
	w := doJSON(t, router, http.MethodPatch, "/api/config", api.UpdateConfigRequest{
		TemplatePath: &path,
		StrictMode:   &strict,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", w.Code)
	}

	got, err := st.GetConfig("template_path")
	if err != nil {
		t.Fatalf("template_path not persisted: %v", err)
	}
	if got != path {
		t.Fatalf("template_path=%q, want %q", got, path)
	}
	got, err = st.GetConfig("strict_mode")
	if err != nil {
		t.Fatalf("strict_mode not persisted: %v", err)
	}
	if got != "true" {
		t.Fatalf("strict_mode=%q, want true", got)
	}
}

func TestHandlerAppliesStoredConfig(t *testing.T) {
	// 库里的运行期配置在新 Handler 启动时覆盖 toml 初值
	st := newAPIStore(t)
	if err := st.SetConfig("template_path", "/srv/vorlagen/alt.xlsx"); err != nil {
		t.Fatalf("seed template_path failed: %v", err)
	}
	if err := st.SetConfig("strict_mode", "true"); err != nil {
		t.Fatalf("seed strict_mode failed: %v", err)
	}
	if err := st.SetConfig("search_range", "A1:Z60"); err != nil {
		t.Fatalf("seed search_range failed: %v", err)
	}

	router, cfg := newRouterWithStore(t, st)
	if cfg.Template.Path != "/srv/vorlagen/alt.xlsx" {
		t.Fatalf("templatePath=%q, want stored value", cfg.Template.Path)
	}
	if !cfg.Protocol.StrictMode {
		t.Fatal("stored strict_mode not applied")
	}
	if cfg.Protocol.SearchRange != "A1:Z60" {
		t.Fatalf("searchRange=%q, want A1:Z60", cfg.Protocol.SearchRange)
	}

	w := doJSON(t, router, http.MethodGet, "/api/config", nil)
	var resp api.ConfigResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TemplatePath != "/srv/vorlagen/alt.xlsx" || !resp.StrictMode {
		t.Fatalf("response %+v does not reflect stored config", resp)
	}
}

func TestMappingSessionFlow(t *testing.T) {
	router, st, _ := newTestRouter(t)

	body, contentType := protocolUpload(t)
	req := httptest.NewRequest(http.MethodPost, "/api/mapping/session", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create session status=%d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		SessionID string `json:"sessionId"`
		State     string `json:"state"`
		Fields    []struct {
			Name   string `json:"name"`
			Chosen string `json:"chosen"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if created.State != "editing" {
		t.Fatalf("state=%q, want editing", created.State)
	}
	if created.SessionID == "" {
		t.Fatal("empty session id")
	}

	// 自动建议：两个字段都已预选
	chosen := map[string]string{}
	for _, f := range created.Fields {
		chosen[f.Name] = f.Chosen
	}
	if chosen["orderNumber"] != "N5" {
		t.Fatalf("orderNumber chosen=%q, want N5", chosen["orderNumber"])
	}
	if chosen["facility"] != "D7" {
		t.Fatalf("facility chosen=%q, want D7", chosen["facility"])
	}

	// 确认后映射决定落库
	w = doJSON(t, router, http.MethodPost, "/api/mapping/session/"+created.SessionID+"/confirm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status=%d, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "confirmed") {
		t.Fatalf("confirm response %s missing confirmed state", w.Body.String())
	}

	overrides, err := st.ListFieldOverrides()
	if err != nil {
		t.Fatalf("list overrides failed: %v", err)
	}
	if overrides["orderNumber"] != "N5" {
		t.Fatalf("persisted orderNumber=%q, want N5", overrides["orderNumber"])
	}

	// 会话确认后即销毁
	w = doJSON(t, router, http.MethodGet, "/api/mapping/session/"+created.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after confirm status=%d, want 404", w.Code)
	}
}

func TestMappingSessionNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/mapping/session/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/mapping/session/nope/confirm", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("confirm status=%d, want 404", w.Code)
	}
}
