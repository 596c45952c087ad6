package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"protokoll/internal/config"
	"protokoll/internal/model"
)

// Extract 扫描配置的行范围，产出行项目
//
// 每行独立处理：编号格先用编号正则截取（"Pos. 1.02.0031 – Kabel" → "1.02.0031"），
// 不匹配则退回整格文本；数量按候选列顺序取第一个有限数值。
// 编号和数量都有才产出一条记录；只有其一的行记入 skipped 供诊断，
// 完全空行静默跳过。输出顺序 = 行号升序。
func Extract(wb *excelize.File, p *config.PositionsConfig, sheet string) ([]model.RawLineItem, []model.SkippedRow, error) {
	idRe, err := regexp.Compile(p.IdentifierPattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid identifier pattern: %w", err)
	}

	items := make([]model.RawLineItem, 0)
	skipped := make([]model.SkippedRow, 0)

	for row := p.RowStart; row <= p.RowEnd; row++ {
		rawID := readCell(wb, sheet, p.IdentifierColumn, row)

		identifier := ""
		if rawID != "" {
			if m := idRe.FindString(rawID); m != "" {
				identifier = m
			} else {
				identifier = rawID
			}
		}

		quantity, qtyCol, hasQty := scanQuantity(wb, p.QuantityColumns, sheet, row)

		switch {
		case identifier != "" && hasQty:
			items = append(items, model.RawLineItem{
				Identifier:   identifier,
				Quantity:     quantity,
				SourceRow:    row,
				SourceColumn: qtyCol,
			})
		case identifier != "":
			skipped = append(skipped, model.SkippedRow{Row: row, Reason: "identifier without quantity"})
		case hasQty:
			skipped = append(skipped, model.SkippedRow{Row: row, Reason: "quantity without identifier"})
		}
	}

	if len(items) == 0 {
		return nil, skipped, &model.NoPositionsFoundError{
			Sheet:    sheet,
			RowStart: p.RowStart,
			RowEnd:   p.RowEnd,
		}
	}

	return items, skipped, nil
}

// scanQuantity 按候选列顺序取第一个有限数值
func scanQuantity(wb *excelize.File, columns []string, sheet string, row int) (float64, string, bool) {
	for _, col := range columns {
		v := readCell(wb, sheet, col, row)
		if v == "" {
			continue
		}
		if q, ok := parseQuantity(v); ok {
			return q, col, true
		}
	}
	return 0, "", false
}

// parseQuantity 解析数量格文本
// 德式数字常见 "1.234,56"；有逗号时点是千分位，否则去掉千分位逗号
func parseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func readCell(wb *excelize.File, sheet, col string, row int) string {
	v, err := wb.GetCellValue(sheet, fmt.Sprintf("%s%d", col, row))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
