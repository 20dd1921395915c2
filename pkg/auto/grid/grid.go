// Package grid 提供网格计算：按行列等分矩形，或按固定步长生成格子
//
// 背包、祈祷、法术书等界面都是等距排列的格子，校准时用 Layout 生成。
package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// GridPosition 网格位置
type GridPosition struct {
	Rows int `json:"rows"` // 总行数
	Cols int `json:"cols"` // 总列数
	Row  int `json:"row"`  // 目标行 (1-based)
	Col  int `json:"col"`  // 目标列 (1-based)
}

// ParseGridPosition 解析网格位置字符串
// 格式: rows.cols.row.col (如 "7.4.1.1" 表示 7x4 网格的第1行第1列)
func ParseGridPosition(s string) (*GridPosition, error) {
	if s == "" {
		return nil, fmt.Errorf("网格位置字符串为空")
	}

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("无效的网格位置格式: %s (期望格式: rows.cols.row.col)", s)
	}

	var vals [4]int
	names := [4]string{"行数", "列数", "目标行", "目标列"}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("无效的%s: %s", names[i], p)
		}
		vals[i] = v
	}
	rows, cols, row, col := vals[0], vals[1], vals[2], vals[3]

	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("行数和列数必须大于 0: rows=%d, cols=%d", rows, cols)
	}
	if row < 1 || col < 1 {
		return nil, fmt.Errorf("目标行和目标列必须大于 0: row=%d, col=%d", row, col)
	}
	if row > rows || col > cols {
		return nil, fmt.Errorf("目标位置超出范围: row=%d > rows=%d 或 col=%d > cols=%d", row, rows, col, cols)
	}

	return &GridPosition{Rows: rows, Cols: cols, Row: row, Col: col}, nil
}

// FormatGridPosition 格式化网格位置为字符串
func FormatGridPosition(rows, cols, row, col int) string {
	return fmt.Sprintf("%d.%d.%d.%d", rows, cols, row, col)
}

// Index 行优先的 0-based 序号
func (p GridPosition) Index() int {
	return (p.Row-1)*p.Cols + (p.Col - 1)
}

// CellCenter 计算等分网格中单元格的中心点，grid 为 nil 时返回矩形中心
func CellCenter(rect geometry.Rectangle, grid *GridPosition) geometry.Point {
	if grid == nil {
		return rect.Center()
	}

	cellWidth := float64(rect.Width) / float64(grid.Cols)
	cellHeight := float64(rect.Height) / float64(grid.Rows)

	return geometry.Point{
		X: int(float64(rect.Left) + (float64(grid.Col)-0.5)*cellWidth),
		Y: int(float64(rect.Top) + (float64(grid.Row)-0.5)*cellHeight),
	}
}

// CellRect 等分网格中指定格子的矩形区域
func CellRect(rect geometry.Rectangle, rows, cols, row, col int) geometry.Rectangle {
	cellWidth := float64(rect.Width) / float64(cols)
	cellHeight := float64(rect.Height) / float64(rows)

	return geometry.Rectangle{
		Left:   int(float64(rect.Left) + float64(col-1)*cellWidth),
		Top:    int(float64(rect.Top) + float64(row-1)*cellHeight),
		Width:  int(cellWidth),
		Height: int(cellHeight),
	}
}

// Layout 固定步长网格
//
// 第 (r, c) 个格子的左上角为 Origin + (c*StepX, r*StepY)，格子尺寸可以
// 大于步长，此时相邻格子互相重叠。Trim 为末尾丢弃的格子数。
type Layout struct {
	Origin       geometry.Point
	Rows, Cols   int
	StepX, StepY int
	Width        int
	Height       int
	Trim         int
}

// Count 格子总数
func (l Layout) Count() int {
	n := l.Rows*l.Cols - l.Trim
	if n < 0 {
		return 0
	}
	return n
}

// Cell 第 i 个格子（行优先，0-based）
func (l Layout) Cell(i int) geometry.Rectangle {
	row, col := i/l.Cols, i%l.Cols
	return geometry.Rectangle{
		Left:   l.Origin.X + col*l.StepX,
		Top:    l.Origin.Y + row*l.StepY,
		Width:  l.Width,
		Height: l.Height,
	}
}

// Cells 全部格子，按行从左到右、再从上到下排列
func (l Layout) Cells() []geometry.Rectangle {
	cells := make([]geometry.Rectangle, l.Count())
	for i := range cells {
		cells[i] = l.Cell(i)
	}
	return cells
}

// At 按 1-based 行列获取格子
func (l Layout) At(row, col int) (geometry.Rectangle, error) {
	if row < 1 || col < 1 || row > l.Rows || col > l.Cols {
		return geometry.Rectangle{}, fmt.Errorf("目标位置超出范围: row=%d, col=%d (%dx%d)", row, col, l.Rows, l.Cols)
	}
	i := (row-1)*l.Cols + (col - 1)
	if i >= l.Count() {
		return geometry.Rectangle{}, fmt.Errorf("格子 %d 已被裁掉", i)
	}
	return l.Cell(i), nil
}
