package cellmap

import (
	"fmt"

	"protokoll/internal/config"
)

// FieldCellMap 字段名 → 候选单元格地址（按优先级）
// 显式值类型，由调用方持有；人工确认通过 ApplyOverride 写回，
// 不存在隐藏的包级可变状态
type FieldCellMap map[string][]string

// NewFieldCellMap 从协议配置构建候选地址表
func NewFieldCellMap(p *config.ProtocolConfig) FieldCellMap {
	m := make(FieldCellMap, len(p.Fields))
	for _, f := range p.Fields {
		addrs := make([]string, len(f.Fallbacks))
		copy(addrs, f.Fallbacks)
		m[f.Name] = addrs
	}
	return m
}

// Clone 深拷贝
func (m FieldCellMap) Clone() FieldCellMap {
	out := make(FieldCellMap, len(m))
	for field, addrs := range m {
		cp := make([]string, len(addrs))
		copy(cp, addrs)
		out[field] = cp
	}
	return out
}

// ApplyOverride 把人工选定的地址提到字段候选列表最前（去重）
// 之后同构文档在策略1即可命中
func (m FieldCellMap) ApplyOverride(field, addr string) error {
	if _, err := ParseAddress(addr); err != nil {
		return fmt.Errorf("invalid cell address %q: %w", addr, err)
	}

	old := m[field]
	next := make([]string, 0, len(old)+1)
	next = append(next, addr)
	for _, a := range old {
		if a == addr {
			continue
		}
		next = append(next, a)
	}
	m[field] = next
	return nil
}
