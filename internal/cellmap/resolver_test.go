package cellmap_test

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"protokoll/internal/cellmap"
	"protokoll/internal/config"
	"protokoll/internal/model"
)

const testSheet = "Prüfprotokoll"

func buildWorkbook(t *testing.T, cells map[string]string) *excelize.File {
	t.Helper()

	wb := excelize.NewFile()
	wb.SetSheetName("Sheet1", testSheet)

	for addr, value := range cells {
		if err := wb.SetCellValue(testSheet, addr, value); err != nil {
			t.Fatalf("SetCellValue %s failed: %v", addr, err)
		}
	}
	return wb
}

func testProtocolConfig() *config.ProtocolConfig {
	return &config.ProtocolConfig{
		SheetName:   testSheet,
		StrictMode:  false,
		SearchRange: "A1:T40",
		Fields: []config.FieldConfig{
			{
				Name:         "orderNumber",
				Required:     true,
				Fallbacks:    []string{"N5", "M5", "O5"},
				LabelPattern: `(?i)auftrag(s)?[-\s]?(nummer|nr\.?)`,
			},
			{
				Name:         "facility",
				Required:     true,
				Fallbacks:    []string{"D7", "C7"},
				LabelPattern: `(?i)anlage(n)?\s*:?\s*$`,
			},
			{
				Name:         "location",
				Fallbacks:    []string{"D9"},
				LabelPattern: `(?i)^ort\s*:?\s*$`,
			},
		},
	}
}

func newTestResolver(t *testing.T, p *config.ProtocolConfig) *cellmap.Resolver {
	t.Helper()
	r, err := cellmap.NewResolver(p, cellmap.NewFieldCellMap(p))
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	return r
}

func TestResolveDirectFallbackHit(t *testing.T) {
	wb := buildWorkbook(t, map[string]string{"N5": "A12345"})
	r := newTestResolver(t, testProtocolConfig())

	res, ok := r.Resolve(wb, testSheet, "orderNumber")
	if !ok {
		t.Fatal("expected orderNumber to resolve")
	}
	if res.Value != "A12345" || res.Address != "N5" {
		t.Fatalf("got %q at %s, want A12345 at N5", res.Value, res.Address)
	}
}

func TestResolveLabelTriggersNeighborCheck(t *testing.T) {
	// N5 含标签 "Auftragsnummer:"，真正的值在右二 O5 — 候选列表也列了
	// O5，但必须先通过 N5 的邻格检查命中，而不是跳到下一个候选
	wb := buildWorkbook(t, map[string]string{
		"N5": "Auftragsnummer:",
		"O5": "A12345",
	})
	r := newTestResolver(t, testProtocolConfig())

	res, ok := r.Resolve(wb, testSheet, "orderNumber")
	if !ok {
		t.Fatal("expected orderNumber to resolve")
	}
	if res.Value != "A12345" {
		t.Fatalf("value=%q, want A12345", res.Value)
	}
	if res.Address != "O5" {
		t.Fatalf("address=%s, want O5", res.Address)
	}
}

func TestResolveSkipsLabelOnlyAddress(t *testing.T) {
	// N5 是标签且邻格全空 → 落到下一个候选 M5
	wb := buildWorkbook(t, map[string]string{
		"N5": "Auftrags-Nr.",
		"M5": "B777",
	})
	r := newTestResolver(t, testProtocolConfig())

	res, ok := r.Resolve(wb, testSheet, "orderNumber")
	if !ok {
		t.Fatal("expected orderNumber to resolve")
	}
	// 注意：M5 是 N5 的左邻格，邻格检查的顺序把左排在最后，
	// 但这里左邻格有值，策略2 已经命中
	if res.Value != "B777" || res.Address != "M5" {
		t.Fatalf("got %q at %s, want B777 at M5", res.Value, res.Address)
	}
}

func TestResolvePatternSearch(t *testing.T) {
	// 候选地址全空，标签出现在完全不同的位置 → 策略3
	wb := buildWorkbook(t, map[string]string{
		"B12": "Auftragsnummer",
		"C12": "K-2044",
	})
	r := newTestResolver(t, testProtocolConfig())

	res, ok := r.Resolve(wb, testSheet, "orderNumber")
	if !ok {
		t.Fatal("expected pattern search to resolve orderNumber")
	}
	if res.Value != "K-2044" || res.Address != "C12" {
		t.Fatalf("got %q at %s, want K-2044 at C12", res.Value, res.Address)
	}
}

func TestResolveStrictModeDisablesPatternSearch(t *testing.T) {
	wb := buildWorkbook(t, map[string]string{
		"B12": "Auftragsnummer",
		"C12": "K-2044",
	})
	p := testProtocolConfig()
	p.StrictMode = true
	r := newTestResolver(t, p)

	if _, ok := r.Resolve(wb, testSheet, "orderNumber"); ok {
		t.Fatal("strict mode must not fall back to pattern search")
	}
}

func TestResolveFallbackBeforePatternSearch(t *testing.T) {
	// 候选地址和搜索范围各有一个可用值：候选地址必须赢
	wb := buildWorkbook(t, map[string]string{
		"M5":  "FROM-FALLBACK",
		"B12": "Auftragsnummer",
		"C12": "FROM-SEARCH",
	})
	r := newTestResolver(t, testProtocolConfig())

	res, ok := r.Resolve(wb, testSheet, "orderNumber")
	if !ok {
		t.Fatal("expected orderNumber to resolve")
	}
	if res.Value != "FROM-FALLBACK" {
		t.Fatalf("value=%q, want FROM-FALLBACK (fallback list before pattern search)", res.Value)
	}
}

func TestResolveHeaderMissingRequiredField(t *testing.T) {
	// facility 的所有候选和搜索命中都为空 → MissingRequiredFieldError，
	// orderNumber 不受影响照常解析
	wb := buildWorkbook(t, map[string]string{
		"N5": "A12345",
		"D9": "Hamburg",
	})
	r := newTestResolver(t, testProtocolConfig())

	header, _, err := r.ResolveHeader(wb, testSheet)
	if err == nil {
		t.Fatal("expected missing required field error")
	}

	var missing *model.MissingRequiredFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("error %v is not MissingRequiredFieldError", err)
	}
	if missing.Field != "facility" {
		t.Fatalf("missing field=%q, want facility", missing.Field)
	}

	if header.OrderNumber != "A12345" {
		t.Fatalf("orderNumber=%q, want A12345 despite facility failure", header.OrderNumber)
	}
	if header.Location != "Hamburg" {
		t.Fatalf("location=%q, want Hamburg", header.Location)
	}
}

func TestResolveHeaderOptionalMissingIsWarning(t *testing.T) {
	wb := buildWorkbook(t, map[string]string{
		"N5": "A12345",
		"D7": "Werk Nord",
	})
	r := newTestResolver(t, testProtocolConfig())

	header, warnings, err := r.ResolveHeader(wb, testSheet)
	if err != nil {
		t.Fatalf("ResolveHeader failed: %v", err)
	}
	if header.Facility != "Werk Nord" {
		t.Fatalf("facility=%q, want Werk Nord", header.Facility)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings=%v, want exactly one for missing location", warnings)
	}
}

func TestApplyOverridePromotesToFront(t *testing.T) {
	p := testProtocolConfig()
	m := cellmap.NewFieldCellMap(p)

	if err := m.ApplyOverride("orderNumber", "O5"); err != nil {
		t.Fatalf("ApplyOverride failed: %v", err)
	}

	got := m["orderNumber"]
	want := []string{"O5", "N5", "M5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fallbacks=%v, want %v", got, want)
		}
	}
}

func TestApplyOverrideRejectsInvalidAddress(t *testing.T) {
	m := cellmap.NewFieldCellMap(testProtocolConfig())
	if err := m.ApplyOverride("orderNumber", "zzz"); err == nil {
		t.Fatal("expected invalid address error")
	}
}
