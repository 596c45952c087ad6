package cellmap

import (
	"github.com/xuri/excelize/v2"
)

// xlsx 格式的坐标上限
const (
	MaxRow = 1048576
	MaxCol = 16384
)

// Coord 单元格坐标（1-based）；A1 字符串只在 I/O 边界转换
type Coord struct {
	Row int
	Col int
}

// ParseAddress 解析 A1 地址为坐标
func ParseAddress(addr string) (Coord, error) {
	col, row, err := excelize.CellNameToCoordinates(addr)
	if err != nil {
		return Coord{}, err
	}
	return Coord{Row: row, Col: col}, nil
}

// Address 转回 A1 地址；非法坐标返回空串
func (c Coord) Address() string {
	if !c.InBounds() {
		return ""
	}
	addr, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return ""
	}
	return addr
}

// InBounds 坐标是否在 xlsx 合法范围内
func (c Coord) InBounds() bool {
	return c.Row >= 1 && c.Row <= MaxRow && c.Col >= 1 && c.Col <= MaxCol
}

// Offset 平移后的坐标
func (c Coord) Offset(dRow, dCol int) Coord {
	return Coord{Row: c.Row + dRow, Col: c.Col + dCol}
}

// neighborOffsets 邻格检查顺序。顺序编码了经验先验：
// 标签/值最常横向排列，值紧跟在标签右侧
var neighborOffsets = []struct{ dRow, dCol int }{
	{0, 1},  // 右
	{0, 2},  // 右二
	{1, 0},  // 下
	{1, 1},  // 右下
	{0, -1}, // 左
}

// Neighbors 返回值得检查标签/值配对的邻格地址，越界的剔除
func Neighbors(addr string) []string {
	c, err := ParseAddress(addr)
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(neighborOffsets))
	for _, o := range neighborOffsets {
		n := c.Offset(o.dRow, o.dCol)
		if !n.InBounds() {
			continue
		}
		out = append(out, n.Address())
	}
	return out
}
