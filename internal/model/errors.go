package model

import "fmt"

// MissingRequiredFieldError 必填表头字段在所有策略后仍未解析出值
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("required field %q could not be resolved", e.Field)
}

// InvalidInputError 汇总收到非法输入（空编号 / 非有限数量）
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// TemplateStructureError 模板缺少期望的工作表
type TemplateStructureError struct {
	Sheet string
}

func (e *TemplateStructureError) Error() string {
	return fmt.Sprintf("template sheet %q not found", e.Sheet)
}

// NoPositionsFoundError 行范围内没有提取出任何行项目
type NoPositionsFoundError struct {
	Sheet    string
	RowStart int
	RowEnd   int
}

func (e *NoPositionsFoundError) Error() string {
	return fmt.Sprintf("no positions found in sheet %q rows %d-%d", e.Sheet, e.RowStart, e.RowEnd)
}
