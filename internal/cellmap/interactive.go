package cellmap

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"protokoll/internal/model"
)

// SessionState 交互式映射会话状态
type SessionState string

const (
	StateEditing   SessionState = "editing"
	StateConfirmed SessionState = "confirmed"
	StateCancelled SessionState = "cancelled"
)

// Session 交互式映射会话：每个字段给出自动解析的最佳猜测
// 加上所有非空候选格（候选地址 ∪ 其邻格），供人工改选。
// 候选快照在创建时读取一次，之后不再碰工作簿
type Session struct {
	state      SessionState
	resolver   *Resolver
	fieldOrder []string
	candidates map[string][]model.MappingCandidate
	chosen     map[string]string // 字段 → 选中地址；"" 表示未选
	unmapped   map[string]bool   // 显式"无映射"
}

// NewSession 创建会话并计算候选快照
func NewSession(resolver *Resolver, wb *excelize.File, sheet string) *Session {
	s := &Session{
		state:      StateEditing,
		resolver:   resolver,
		candidates: make(map[string][]model.MappingCandidate),
		chosen:     make(map[string]string),
		unmapped:   make(map[string]bool),
	}

	for field := range resolver.fields {
		s.fieldOrder = append(s.fieldOrder, field)
	}
	sort.Strings(s.fieldOrder)

	for _, field := range s.fieldOrder {
		best, hasBest := resolver.Resolve(wb, sheet, field)

		seen := make(map[string]bool)
		cands := make([]model.MappingCandidate, 0)

		addCandidate := func(addr string) {
			if addr == "" || seen[addr] {
				return
			}
			seen[addr] = true
			value := readCell(wb, sheet, addr)
			if value == "" && !(hasBest && addr == best.Address) {
				return
			}
			cands = append(cands, model.MappingCandidate{
				Address:   addr,
				Value:     value,
				Suggested: hasBest && addr == best.Address,
			})
		}

		if hasBest {
			addCandidate(best.Address)
		}
		for _, addr := range resolver.fields[field] {
			addCandidate(addr)
			for _, n := range Neighbors(addr) {
				addCandidate(n)
			}
		}

		s.candidates[field] = cands
		if hasBest {
			s.chosen[field] = best.Address
		}
	}

	return s
}

// State 当前状态
func (s *Session) State() SessionState {
	return s.state
}

// Fields 字段名（稳定顺序）
func (s *Session) Fields() []string {
	return s.fieldOrder
}

// Candidates 字段候选快照
func (s *Session) Candidates(field string) []model.MappingCandidate {
	return s.candidates[field]
}

// Chosen 当前选中地址；未选返回 ""
func (s *Session) Chosen(field string) string {
	if s.unmapped[field] {
		return ""
	}
	return s.chosen[field]
}

// Select 人工改选某字段的候选地址；只影响该字段
func (s *Session) Select(field, addr string) error {
	if s.state != StateEditing {
		return fmt.Errorf("session is %s", s.state)
	}
	for _, c := range s.candidates[field] {
		if c.Address == addr {
			s.chosen[field] = addr
			delete(s.unmapped, field)
			return nil
		}
	}
	return fmt.Errorf("address %q is not a candidate for field %q", addr, field)
}

// MarkUnmapped 显式标记字段无映射
// 候选全空的必填字段也要能走到这里，由 Confirm 校验报缺失
func (s *Session) MarkUnmapped(field string) error {
	if s.state != StateEditing {
		return fmt.Errorf("session is %s", s.state)
	}
	s.unmapped[field] = true
	return nil
}

// Confirm 校验并确认
// 必填字段缺选中地址时不换状态，返回错误列表（留在 Editing）；
// 通过后把每个选中地址提到 FieldCellMap 最前并返回映射决定
func (s *Session) Confirm() ([]model.MappingDecision, []string) {
	if s.state != StateEditing {
		return nil, []string{fmt.Sprintf("session is %s", s.state)}
	}

	var errs []string
	for _, field := range s.fieldOrder {
		if !s.resolver.required[field] {
			continue
		}
		if s.Chosen(field) == "" {
			errs = append(errs, fmt.Sprintf("required field %q has no mapping", field))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	decisions := make([]model.MappingDecision, 0, len(s.fieldOrder))
	for _, field := range s.fieldOrder {
		addr := s.Chosen(field)
		if addr == "" {
			decisions = append(decisions, model.MappingDecision{Field: field, Unmapped: true})
			continue
		}

		suggested := ""
		for _, c := range s.candidates[field] {
			if c.Suggested {
				suggested = c.Address
				break
			}
		}

		_ = s.resolver.fields.ApplyOverride(field, addr)
		decisions = append(decisions, model.MappingDecision{
			Field:   field,
			Address: addr,
			Manual:  addr != suggested,
		})
	}

	s.state = StateConfirmed
	return decisions, nil
}

// Cancel 放弃会话，无副作用
func (s *Session) Cancel() {
	if s.state == StateEditing {
		s.state = StateCancelled
	}
}
