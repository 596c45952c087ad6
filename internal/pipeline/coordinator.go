package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"protokoll/internal/aggregator"
	"protokoll/internal/cellmap"
	"protokoll/internal/config"
	"protokoll/internal/extractor"
	"protokoll/internal/model"
	"protokoll/internal/store"
	"protokoll/internal/template"
)

// Coordinator 流水线协调器：解析表头 → 提取行项目 → 校验 → 汇总 →
// （可选）填充结算模板。单次调用内同步执行，工作簿归调用方所有，
// 调用结束后不保留任何引用。模板字节按路径缓存一份，重复填充
// 不再读盘
type Coordinator struct {
	store *store.Store
	cfg   *config.AppConfig

	tmplMu   sync.Mutex
	tmplPath string
	tmplData []byte
}

// NewCoordinator 创建流水线协调器
func NewCoordinator(st *store.Store, cfg *config.AppConfig) *Coordinator {
	return &Coordinator{store: st, cfg: cfg}
}

// RunOptions 流水线选项
type RunOptions struct {
	FilePath     string
	FillTemplate bool   // 是否填充结算模板
	TemplatePath string // 覆盖配置中的模板路径
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string    `json:"type"` // start/info/warning/error/done
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result 一次流水线执行的完整结果
type Result struct {
	ImportID       string                     `json:"importId"`
	Filename       string                     `json:"filename"`
	Header         *model.HeaderMetadata      `json:"header"`
	HeaderWarnings []string                   `json:"headerWarnings"`
	Items          []model.RawLineItem        `json:"items"`
	Skipped        []model.SkippedRow         `json:"skipped"`
	Validation     model.ValidationReport     `json:"validation"`
	Aggregated     model.AggregatedQuantities `json:"aggregated"`
	Summary        model.Summary              `json:"summary"`
	Fill           *model.FillResult          `json:"fill,omitempty"`
	FillReport     *model.TemplateFillReport  `json:"fillReport,omitempty"`
	ExportPath     string                     `json:"exportPath,omitempty"`
	Duration       time.Duration              `json:"duration"`
}

// Run 执行流水线，返回进度通道
func (c *Coordinator) Run(opts RunOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		c.doRun(opts, progressChan)
	}()

	return progressChan
}

// Execute 同步执行流水线，丢弃进度事件，只要结果
func (c *Coordinator) Execute(opts RunOptions) (*Result, error) {
	progressChan := make(chan ProgressEvent, 100)
	result, err := c.doRunInner(opts, progressChan)
	close(progressChan)
	for range progressChan {
	}
	return result, err
}

func (c *Coordinator) doRun(opts RunOptions, progressChan chan ProgressEvent) {
	result, err := c.doRunInner(opts, progressChan)
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "error",
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
		return
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   "Import abgeschlossen",
		Data:      result,
		Timestamp: time.Now(),
	})
}

func (c *Coordinator) doRunInner(opts RunOptions, progressChan chan ProgressEvent) (*Result, error) {
	startTime := time.Now()
	importID := uuid.New().String()
	filename := filepath.Base(opts.FilePath)

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("Importiere %s", filename),
		Data:      map[string]string{"importId": importID, "filename": filename},
		Timestamp: time.Now(),
	})

	logID, logErr := c.store.CreateImportLog(importID, filename, 0)
	if logErr != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("Importlog konnte nicht angelegt werden: %v", logErr),
			Timestamp: time.Now(),
		})
	}

	result, err := c.runStages(opts, importID, filename, progressChan)

	if logID > 0 {
		status := "done"
		errMsg := ""
		if err != nil {
			status = "error"
			errMsg = err.Error()
		}
		var itemCount, skippedCount, uniqueCount int
		var total float64
		var warnings []string
		if result != nil {
			itemCount = len(result.Items)
			skippedCount = len(result.Skipped)
			uniqueCount = result.Summary.UniqueCount
			total = result.Summary.TotalQuantity
			warnings = append(warnings, result.HeaderWarnings...)
			warnings = append(warnings, result.Validation.Warnings...)
		}
		if updErr := c.store.CompleteImportLog(logID, itemCount, skippedCount, uniqueCount, total, warnings, status, errMsg); updErr != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "warning",
				Message:   fmt.Sprintf("Importlog konnte nicht aktualisiert werden: %v", updErr),
				Timestamp: time.Now(),
			})
		}
	}

	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// runStages 按序执行各阶段；任一整体阻断错误直接返回
func (c *Coordinator) runStages(opts RunOptions, importID, filename string, progressChan chan ProgressEvent) (*Result, error) {
	wb, err := excelize.OpenFile(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	result := &Result{ImportID: importID, Filename: filename}
	sheet := c.cfg.Protocol.SheetName

	// 候选地址表：配置默认 + 持久化的人工覆盖
	fields := cellmap.NewFieldCellMap(&c.cfg.Protocol)
	overrides, err := c.store.ListFieldOverrides()
	if err != nil {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   fmt.Sprintf("Gespeicherte Zuordnungen nicht lesbar: %v", err),
			Timestamp: time.Now(),
		})
	}
	for field, addr := range overrides {
		_ = fields.ApplyOverride(field, addr)
	}

	resolver, err := cellmap.NewResolver(&c.cfg.Protocol, fields)
	if err != nil {
		return nil, err
	}

	// 阶段1：表头
	header, headerWarnings, err := resolver.ResolveHeader(wb, sheet)
	result.Header = header
	result.HeaderWarnings = headerWarnings
	if err != nil {
		// 必填字段缺失阻断整条流水线，但已解析的字段保留在结果里
		return result, err
	}
	for _, w := range headerWarnings {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   w,
			Timestamp: time.Now(),
		})
	}
	c.sendProgress(progressChan, ProgressEvent{
		Type:      "info",
		Message:   fmt.Sprintf("Kopfdaten: Auftrag %s, Anlage %s", header.OrderNumber, header.Facility),
		Data:      header,
		Timestamp: time.Now(),
	})

	// 阶段2：行项目
	items, skipped, err := extractor.Extract(wb, &c.cfg.Protocol.Positions, sheet)
	result.Items = items
	result.Skipped = skipped
	if err != nil {
		return result, err
	}
	c.sendProgress(progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("%d Positionen gefunden, %d Zeilen übersprungen", len(items), len(skipped)),
		Data: map[string]int{
			"items":   len(items),
			"skipped": len(skipped),
		},
		Timestamp: time.Now(),
	})

	// 阶段3：校验（非致命；错误阻断汇总）
	validation := aggregator.Validate(items, c.cfg.Protocol.Positions.IdentifierPattern)
	result.Validation = validation
	for _, w := range validation.Warnings {
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "warning",
			Message:   w,
			Timestamp: time.Now(),
		})
	}
	if !validation.Valid {
		return result, fmt.Errorf("validation failed: %s", validation.Errors[0])
	}

	// 阶段4：汇总
	agg, err := aggregator.Aggregate(items)
	if err != nil {
		return result, err
	}
	result.Aggregated = agg
	result.Summary = aggregator.Summarize(agg)
	c.sendProgress(progressChan, ProgressEvent{
		Type:      "info",
		Message:   fmt.Sprintf("%d eindeutige Positionen, Gesamtmenge %.2f", result.Summary.UniqueCount, result.Summary.TotalQuantity),
		Data:      result.Summary,
		Timestamp: time.Now(),
	})

	// 阶段5：模板填充（可选）
	if opts.FillTemplate {
		if err := c.fillTemplate(opts, result, progressChan); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (c *Coordinator) fillTemplate(opts RunOptions, result *Result, progressChan chan ProgressEvent) error {
	templatePath := opts.TemplatePath
	if templatePath == "" {
		templatePath = c.cfg.Template.Path
	}

	tmpl, err := c.openTemplate(templatePath)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer tmpl.Close()

	filler := template.NewFiller(&c.cfg.Template)

	if err := filler.FillHeader(tmpl, result.Header); err != nil {
		return err
	}

	fill, err := filler.FillPositions(tmpl, result.Aggregated)
	if err != nil {
		return err
	}
	result.Fill = &fill

	report, err := filler.ValidateFilled(tmpl)
	if err != nil {
		return err
	}
	result.FillReport = &report

	exportPath := config.GetDataPath(c.cfg, "exports", fmt.Sprintf("abrechnung_%s.xlsx", result.ImportID))
	if err := tmpl.SaveAs(exportPath); err != nil {
		return fmt.Errorf("save filled template: %w", err)
	}
	result.ExportPath = exportPath

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("Vorlage gefüllt: %d Zeilen, %d ohne Zuordnung", fill.Filled, fill.Skipped),
		Data: map[string]any{
			"fill":   fill,
			"report": report,
		},
		Timestamp: time.Now(),
	})

	return nil
}

// openTemplate 打开结算模板
// 同一路径的模板字节只读一次盘，之后从缓存解出新工作簿；
// 换路径时缓存失效重读
func (c *Coordinator) openTemplate(path string) (*excelize.File, error) {
	if path == "" {
		return nil, fmt.Errorf("template path is empty")
	}

	c.tmplMu.Lock()
	defer c.tmplMu.Unlock()

	if c.tmplPath != path || c.tmplData == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("template not found: %w", err)
		}
		c.tmplPath = path
		c.tmplData = data
	}

	return template.OpenReader(bytes.NewReader(c.tmplData))
}

// sendProgress 发送进度事件；通道满时丢弃
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}
