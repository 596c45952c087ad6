package template

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"protokoll/internal/config"
	"protokoll/internal/model"
)

// Filler 结算模板填充器
// 只做最小写入：SetCellValue 更新值/类型，不碰样式、合并、数字格式，
// 未写入格中的公式必须原样保留
type Filler struct {
	cfg *config.TemplateConfig
}

// NewFiller 创建填充器
func NewFiller(cfg *config.TemplateConfig) *Filler {
	return &Filler{cfg: cfg}
}

// OpenReader 从字节流打开模板
// 流水线缓存模板字节，重复填充从这里解出新工作簿
func OpenReader(r io.Reader) (*excelize.File, error) {
	return excelize.OpenReader(r)
}

// checkSheet 模板缺少配置的工作表是致命错误
func (f *Filler) checkSheet(wb *excelize.File) error {
	idx, err := wb.GetSheetIndex(f.cfg.SheetName)
	if err != nil || idx < 0 {
		return &model.TemplateStructureError{Sheet: f.cfg.SheetName}
	}
	return nil
}

// FillHeader 把表头元数据写入配置的固定地址；空值字段跳过
func (f *Filler) FillHeader(wb *excelize.File, header *model.HeaderMetadata) error {
	if err := f.checkSheet(wb); err != nil {
		return err
	}

	for field, addr := range f.cfg.HeaderCells {
		value := header.Get(field)
		if value == "" {
			continue
		}
		if err := wb.SetCellValue(f.cfg.SheetName, addr, value); err != nil {
			return fmt.Errorf("write header %s at %s: %w", field, addr, err)
		}
	}
	return nil
}

// FillPositions 扫描模板自己的编号列，编号在汇总里才写相邻数量格
// 没有对应汇总值的模板行原样不动，计入 skipped。重复执行覆盖写入
func (f *Filler) FillPositions(wb *excelize.File, agg model.AggregatedQuantities) (model.FillResult, error) {
	result := model.FillResult{}

	if err := f.checkSheet(wb); err != nil {
		return result, err
	}

	for row := f.cfg.RowStart; row <= f.cfg.RowEnd; row++ {
		identifier := f.readCell(wb, f.cfg.IdentifierColumn, row)
		if identifier == "" {
			continue
		}

		quantity, ok := agg[identifier]
		if !ok {
			result.Skipped++
			continue
		}

		addr := fmt.Sprintf("%s%d", f.cfg.QuantityColumn, row)
		if err := wb.SetCellValue(f.cfg.SheetName, addr, quantity); err != nil {
			return result, fmt.Errorf("write quantity at %s: %w", addr, err)
		}
		result.Filled++
	}

	return result, nil
}

// ValidateFilled 后置检查，纯读：重扫行范围，统计编号非空的行里
// 数量格已填/未填的数量
func (f *Filler) ValidateFilled(wb *excelize.File) (model.TemplateFillReport, error) {
	report := model.TemplateFillReport{Errors: []string{}}

	if err := f.checkSheet(wb); err != nil {
		return report, err
	}

	for row := f.cfg.RowStart; row <= f.cfg.RowEnd; row++ {
		identifier := f.readCell(wb, f.cfg.IdentifierColumn, row)
		if identifier == "" {
			continue
		}

		quantity := f.readCell(wb, f.cfg.QuantityColumn, row)
		if quantity == "" {
			report.EmptyCount++
		} else {
			report.FilledCount++
		}
	}

	return report, nil
}

func (f *Filler) readCell(wb *excelize.File, col string, row int) string {
	v, err := wb.GetCellValue(f.cfg.SheetName, fmt.Sprintf("%s%d", col, row))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
