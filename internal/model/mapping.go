package model

// Resolution 单个字段的解析结果
type Resolution struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Address string `json:"address"` // A1 地址，例如 "O5"
}

// MappingDecision 字段 → 单元格地址的最终决定
// 自动解析或人工确认产生；表头解析完成后即丢弃
type MappingDecision struct {
	Field    string `json:"field"`
	Address  string `json:"address"`
	Manual   bool   `json:"manual"`   // 是否人工改过
	Unmapped bool   `json:"unmapped"` // 显式"无映射"
}

// MappingCandidate 交互式映射的候选项（地址 + 只读值快照）
type MappingCandidate struct {
	Address   string `json:"address"`
	Value     string `json:"value"`
	Suggested bool   `json:"suggested"` // 自动解析的最佳猜测
}

// TemplateFillReport 模板填充后校验报告
type TemplateFillReport struct {
	FilledCount int      `json:"filledCount"` // 编号配对的数量格已填充
	EmptyCount  int      `json:"emptyCount"`  // 编号存在但数量格仍为空
	Errors      []string `json:"errors"`
}

// FillResult 一次 FillPositions 的结果
type FillResult struct {
	Filled  int `json:"filled"`
	Skipped int `json:"skipped"`
}
