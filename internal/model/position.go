package model

// RawLineItem 原始行项目：从检测协议的位置表里扫描出的一行
// (Identifier + Quantity 必须同时存在才会产生一条记录)
type RawLineItem struct {
	Identifier   string  `json:"identifier"`   // 位置编号，例如 "1.02.0031"
	Quantity     float64 `json:"quantity"`     // 数量，有限数值
	SourceRow    int     `json:"sourceRow"`    // 来源行号 (1-based)
	SourceColumn string  `json:"sourceColumn"` // 数量取自哪一列
}

// SkippedRow 被跳过的行（有部分内容但不完整，用于诊断）
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// AggregatedQuantities 按位置编号汇总后的数量
type AggregatedQuantities map[string]float64

// ValidationReport 非致命校验结果；Valid == (len(Errors) == 0)
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Summary 汇总统计（空输入时全为 0）
type Summary struct {
	TotalQuantity float64 `json:"totalQuantity"`
	UniqueCount   int     `json:"uniqueCount"`
	MinQuantity   float64 `json:"minQuantity"`
	MaxQuantity   float64 `json:"maxQuantity"`
}
