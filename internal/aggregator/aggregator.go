package aggregator

import (
	"fmt"
	"math"
	"regexp"

	"protokoll/internal/model"
)

// Aggregate 按编号汇总数量。严格函数：空编号或非有限数量直接报
// InvalidInputError；要非致命诊断先走 Validate。
// 分组对输入顺序不敏感
func Aggregate(items []model.RawLineItem) (model.AggregatedQuantities, error) {
	agg := make(model.AggregatedQuantities, len(items))
	for _, it := range items {
		if it.Identifier == "" {
			return nil, &model.InvalidInputError{
				Reason: fmt.Sprintf("row %d: empty identifier", it.SourceRow),
			}
		}
		if math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0) {
			return nil, &model.InvalidInputError{
				Reason: fmt.Sprintf("row %d (%s): quantity is not finite", it.SourceRow, it.Identifier),
			}
		}
		agg[it.Identifier] += it.Quantity
	}
	return agg, nil
}

// Validate 非致命校验：跨行重复编号 → warning；编号不符合期望格式 →
// warning；负数量 → error。不修改输入；Valid == (len(Errors) == 0)
func Validate(items []model.RawLineItem, identifierPattern string) model.ValidationReport {
	report := model.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	var idRe *regexp.Regexp
	if identifierPattern != "" {
		idRe, _ = regexp.Compile(identifierPattern)
	}

	firstRow := make(map[string]int, len(items))
	for _, it := range items {
		if prev, ok := firstRow[it.Identifier]; ok && prev != it.SourceRow {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"duplicate identifier %q (rows %d and %d)", it.Identifier, prev, it.SourceRow))
		} else if !ok {
			firstRow[it.Identifier] = it.SourceRow
		}

		if idRe != nil && !idRe.MatchString(it.Identifier) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"row %d: identifier %q does not match expected format", it.SourceRow, it.Identifier))
		}

		if it.Quantity < 0 {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"row %d (%s): negative quantity %v", it.SourceRow, it.Identifier, it.Quantity))
		}
	}

	report.Valid = len(report.Errors) == 0
	return report
}

// Summarize 单遍汇总统计；空输入返回全 0（min/max 不用 ±Inf，保持契约全域）
func Summarize(agg model.AggregatedQuantities) model.Summary {
	if len(agg) == 0 {
		return model.Summary{}
	}

	s := model.Summary{UniqueCount: len(agg)}
	first := true
	for _, q := range agg {
		s.TotalQuantity += q
		if first {
			s.MinQuantity = q
			s.MaxQuantity = q
			first = false
			continue
		}
		if q < s.MinQuantity {
			s.MinQuantity = q
		}
		if q > s.MaxQuantity {
			s.MaxQuantity = q
		}
	}
	return s
}
