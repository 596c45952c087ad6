package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Protocol ProtocolConfig `toml:"protocol"`
	Template TemplateConfig `toml:"template"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir    string `toml:"data_dir"`
	AutoBackup bool   `toml:"auto_backup"`
}

// ProtocolConfig 检测协议（输入文档）配置
type ProtocolConfig struct {
	SheetName   string          `toml:"sheet_name"`
	StrictMode  bool            `toml:"strict_mode"`  // true 时禁用整表模式搜索（策略3）
	SearchRange string          `toml:"search_range"` // 模式搜索的矩形范围，如 A1:T40
	Fields      []FieldConfig   `toml:"fields"`
	Positions   PositionsConfig `toml:"positions"`
}

// FieldConfig 单个表头字段的解析配置
type FieldConfig struct {
	Name         string   `toml:"name"`
	Required     bool     `toml:"required"`
	Fallbacks    []string `toml:"fallbacks"`     // 候选单元格地址，按优先级
	LabelPattern string   `toml:"label_pattern"` // 识别“标签格”的正则（德语标签）
}

// PositionsConfig 行项目提取配置
type PositionsConfig struct {
	IdentifierColumn  string   `toml:"identifier_column"`
	QuantityColumns   []string `toml:"quantity_columns"` // 数量列候选，按优先级
	RowStart          int      `toml:"row_start"`
	RowEnd            int      `toml:"row_end"`
	IdentifierPattern string   `toml:"identifier_pattern"`
}

// TemplateConfig 结算模板（输出文档）配置
type TemplateConfig struct {
	Path             string            `toml:"path"`
	SheetName        string            `toml:"sheet_name"`
	HeaderCells      map[string]string `toml:"header_cells"` // 字段名 → 固定地址
	IdentifierColumn string            `toml:"identifier_column"`
	QuantityColumn   string            `toml:"quantity_column"`
	RowStart         int               `toml:"row_start"`
	RowEnd           int               `toml:"row_end"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
}

// DefaultConfig 默认配置
// 字段表是德语检测协议的经验值：地址在不同文档间漂移，所以每个字段
// 都带候选地址列表和标签正则
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20332,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:    "data",
			AutoBackup: true,
		},
		Protocol: ProtocolConfig{
			SheetName:   "Prüfprotokoll",
			StrictMode:  false,
			SearchRange: "A1:T40",
			Fields: []FieldConfig{
				{
					Name:         "orderNumber",
					Required:     true,
					Fallbacks:    []string{"N5", "M5", "O5"},
					LabelPattern: `(?i)auftrag(s)?[-\s]?(nummer|nr\.?)`,
				},
				{
					Name:         "facility",
					Required:     true,
					Fallbacks:    []string{"D7", "C7", "D8"},
					LabelPattern: `(?i)anlage(n)?\s*:?\s*$`,
				},
				{
					Name:         "location",
					Fallbacks:    []string{"D9", "C9", "D10"},
					LabelPattern: `(?i)^ort(schaft)?\s*:?\s*$`,
				},
				{
					Name:         "company",
					Fallbacks:    []string{"D5", "C5", "D4"},
					LabelPattern: `(?i)firma\s*:?\s*$`,
				},
				{
					Name:         "client",
					Fallbacks:    []string{"D6", "C6", "D11"},
					LabelPattern: `(?i)auftraggeber`,
				},
				{
					Name:         "protocolNumber",
					Fallbacks:    []string{"N3", "M3", "O3"},
					LabelPattern: `(?i)protokoll[-\s]?(nummer|nr\.?)`,
				},
				{
					Name:         "date",
					Fallbacks:    []string{"N7", "M7", "N6"},
					LabelPattern: `(?i)datum\s*:?\s*$`,
				},
			},
			Positions: PositionsConfig{
				IdentifierColumn:  "B",
				QuantityColumns:   []string{"H", "I", "G"},
				RowStart:          15,
				RowEnd:            120,
				IdentifierPattern: `\d{1,2}\.\d{1,2}\.\d{1,4}`,
			},
		},
		Template: TemplateConfig{
			Path:      "",
			SheetName: "Abrechnung",
			HeaderCells: map[string]string{
				"orderNumber":    "C3",
				"facility":       "C4",
				"location":       "C5",
				"company":        "C6",
				"client":         "C7",
				"protocolNumber": "F3",
				"date":           "F4",
			},
			IdentifierColumn: "A",
			QuantityColumn:   "D",
			RowStart:         10,
			RowEnd:           200,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			return config, info, nil
		}
		return nil, info, err
	}

	info.PortSpecified = isPortSpecifiedInToml(data)

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, info, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("PROTOKOLL_TEMPLATE_XLSX"); v != "" {
		config.Template.Path = v
	}

	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	exeDir, _ := GetExeDir()
	if exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir, subdir, filename)
}

// FieldByName 按名称查字段配置；找不到返回 nil
func (p *ProtocolConfig) FieldByName(name string) *FieldConfig {
	for i := range p.Fields {
		if p.Fields[i].Name == name {
			return &p.Fields[i]
		}
	}
	return nil
}

// RequiredFieldNames 必填字段名列表（按配置顺序）
func (p *ProtocolConfig) RequiredFieldNames() []string {
	out := make([]string, 0, 2)
	for _, f := range p.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
