package cellmap

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"protokoll/internal/config"
	"protokoll/internal/model"
)

// Resolver 表头字段解析器。三个策略按序执行，先命中先赢：
//  1. 候选地址表：按优先级取第一个非空值；值命中标签正则时，
//     先对该地址做邻格检查，再落到下一个候选地址
//  2. 邻格检查：取第一个非空且本身不是标签的邻格值
//  3. 模式搜索（仅非严格模式）：在限定矩形内找标签格，再做邻格检查
//
// 纯读操作；字段之间互不影响
type Resolver struct {
	fields      FieldCellMap
	labels      map[string]*regexp.Regexp
	required    map[string]bool
	strict      bool
	searchRange string
}

// NewResolver 创建解析器；标签正则非法时报错
func NewResolver(p *config.ProtocolConfig, fields FieldCellMap) (*Resolver, error) {
	labels := make(map[string]*regexp.Regexp, len(p.Fields))
	required := make(map[string]bool, len(p.Fields))
	for _, f := range p.Fields {
		required[f.Name] = f.Required
		if f.LabelPattern == "" {
			continue
		}
		re, err := regexp.Compile(f.LabelPattern)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid label pattern: %w", f.Name, err)
		}
		labels[f.Name] = re
	}

	return &Resolver{
		fields:      fields,
		labels:      labels,
		required:    required,
		strict:      p.StrictMode,
		searchRange: p.SearchRange,
	}, nil
}

// FieldMap 返回解析器当前使用的候选地址表
func (r *Resolver) FieldMap() FieldCellMap {
	return r.fields
}

// Resolve 解析单个字段，返回值和命中地址
func (r *Resolver) Resolve(wb *excelize.File, sheet, field string) (model.Resolution, bool) {
	labelRe := r.labels[field]

	// 策略1：候选地址表
	for _, addr := range r.fields[field] {
		value := readCell(wb, sheet, addr)
		if value == "" {
			continue
		}
		if labelRe != nil && labelRe.MatchString(value) {
			// 命中的是标签格，不是值：策略2，查邻格
			if res, ok := r.checkNeighbors(wb, sheet, field, addr, labelRe); ok {
				return res, true
			}
			continue
		}
		return model.Resolution{Field: field, Value: value, Address: addr}, true
	}

	// 策略3：模式搜索（仅非严格模式，且字段配了标签正则）
	if !r.strict && labelRe != nil {
		if res, ok := r.patternSearch(wb, sheet, field, labelRe); ok {
			return res, true
		}
	}

	return model.Resolution{}, false
}

// checkNeighbors 对标签格做邻格检查，取第一个非空且不是标签的值
func (r *Resolver) checkNeighbors(wb *excelize.File, sheet, field, labelAddr string, labelRe *regexp.Regexp) (model.Resolution, bool) {
	for _, addr := range Neighbors(labelAddr) {
		value := readCell(wb, sheet, addr)
		if value == "" {
			continue
		}
		if labelRe.MatchString(value) {
			continue
		}
		return model.Resolution{Field: field, Value: value, Address: addr}, true
	}
	return model.Resolution{}, false
}

// patternSearch 在限定矩形内逐格找标签，再从标签格做邻格检查
func (r *Resolver) patternSearch(wb *excelize.File, sheet, field string, labelRe *regexp.Regexp) (model.Resolution, bool) {
	topLeft, bottomRight, err := parseRange(r.searchRange)
	if err != nil {
		return model.Resolution{}, false
	}

	for row := topLeft.Row; row <= bottomRight.Row; row++ {
		for col := topLeft.Col; col <= bottomRight.Col; col++ {
			addr := (Coord{Row: row, Col: col}).Address()
			value := readCell(wb, sheet, addr)
			if value == "" || !labelRe.MatchString(value) {
				continue
			}
			if res, ok := r.checkNeighbors(wb, sheet, field, addr, labelRe); ok {
				return res, true
			}
		}
	}
	return model.Resolution{}, false
}

// ResolveHeader 解析全部表头字段
// 可选字段缺失进 warnings；必填字段缺失合并为 MissingRequiredFieldError
// 返回的元数据包含所有成功解析的字段（部分成功优于整体失败）
func (r *Resolver) ResolveHeader(wb *excelize.File, sheet string) (*model.HeaderMetadata, []string, error) {
	header := &model.HeaderMetadata{}
	warnings := []string{}
	var missing []error

	for field := range r.fields {
		res, ok := r.Resolve(wb, sheet, field)
		if !ok {
			if r.required[field] {
				missing = append(missing, &model.MissingRequiredFieldError{Field: field})
			} else {
				warnings = append(warnings, fmt.Sprintf("optional field %q not found", field))
			}
			continue
		}
		header.Set(field, res.Value)
	}

	if len(missing) > 0 {
		return header, warnings, errors.Join(missing...)
	}
	return header, warnings, nil
}

// parseRange 解析 "A1:T40" 形式的矩形范围
func parseRange(rng string) (topLeft, bottomRight Coord, err error) {
	parts := strings.SplitN(rng, ":", 2)
	if len(parts) != 2 {
		return Coord{}, Coord{}, fmt.Errorf("invalid range %q", rng)
	}
	topLeft, err = ParseAddress(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coord{}, Coord{}, err
	}
	bottomRight, err = ParseAddress(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coord{}, Coord{}, err
	}
	if bottomRight.Row < topLeft.Row || bottomRight.Col < topLeft.Col {
		return Coord{}, Coord{}, fmt.Errorf("invalid range %q", rng)
	}
	return topLeft, bottomRight, nil
}

func readCell(wb *excelize.File, sheet, addr string) string {
	v, err := wb.GetCellValue(sheet, addr)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
