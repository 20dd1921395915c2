package grid

import (
	"testing"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

func TestParseGridPosition(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *GridPosition
		wantErr bool
	}{
		{
			name:  "valid 7x4 inventory slot 1,1",
			input: "7.4.1.1",
			want:  &GridPosition{Rows: 7, Cols: 4, Row: 1, Col: 1},
		},
		{
			name:  "valid 7x4 inventory slot 7,4",
			input: "7.4.7.4",
			want:  &GridPosition{Rows: 7, Cols: 4, Row: 7, Col: 4},
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "invalid format - too few parts",
			input:   "2.2.1",
			wantErr: true,
		},
		{
			name:    "invalid number",
			input:   "2.x.1.1",
			wantErr: true,
		},
		{
			name:    "invalid - row > rows",
			input:   "2.2.3.1",
			wantErr: true,
		},
		{
			name:    "invalid - row < 1",
			input:   "2.2.0.1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGridPosition(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseGridPosition() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && *got != *tt.want {
				t.Errorf("ParseGridPosition() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatGridPosition(t *testing.T) {
	if got := FormatGridPosition(7, 4, 2, 3); got != "7.4.2.3" {
		t.Errorf("FormatGridPosition() = %v, want %v", got, "7.4.2.3")
	}
	pos, _ := ParseGridPosition("7.4.2.3")
	if pos.Index() != 6 {
		t.Errorf("Index() = %d, want 6", pos.Index())
	}
}

func TestCellCenter(t *testing.T) {
	rect := geometry.Rectangle{Left: 100, Top: 100, Width: 200, Height: 200}

	tests := []struct {
		name string
		grid *GridPosition
		want geometry.Point
	}{
		{"2x2 top left", &GridPosition{Rows: 2, Cols: 2, Row: 1, Col: 1}, geometry.Point{X: 150, Y: 150}},
		{"2x2 top right", &GridPosition{Rows: 2, Cols: 2, Row: 1, Col: 2}, geometry.Point{X: 250, Y: 150}},
		{"nil grid", nil, geometry.Point{X: 200, Y: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellCenter(rect, tt.grid); got != tt.want {
				t.Errorf("CellCenter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCellRect(t *testing.T) {
	rect := geometry.Rectangle{Left: 100, Top: 100, Width: 200, Height: 200}

	cell := CellRect(rect, 2, 2, 2, 2)
	if cell.Left != 200 || cell.Top != 200 || cell.Width != 100 || cell.Height != 100 {
		t.Errorf("CellRect(2,2,2,2) = %v", cell)
	}
}

func TestLayoutCells(t *testing.T) {
	tests := []struct {
		name      string
		layout    Layout
		wantCount int
		wantLast  geometry.Rectangle
	}{
		{
			name:      "overlapping inventory slots",
			layout:    Layout{Origin: geometry.Point{X: 10, Y: 20}, Rows: 7, Cols: 4, StepX: 42, StepY: 36, Width: 43, Height: 39},
			wantCount: 28,
			wantLast:  geometry.Rectangle{Left: 10 + 3*42, Top: 20 + 6*36, Width: 43, Height: 39},
		},
		{
			name:      "trimmed prayers",
			layout:    Layout{Rows: 6, Cols: 5, StepX: 37, StepY: 37, Width: 37, Height: 37, Trim: 1},
			wantCount: 29,
			wantLast:  geometry.Rectangle{Left: 3 * 37, Top: 5 * 37, Width: 37, Height: 37},
		},
		{
			name:      "trimmed spells",
			layout:    Layout{Rows: 10, Cols: 7, StepX: 26, StepY: 24, Width: 26, Height: 24, Trim: 5},
			wantCount: 65,
			wantLast:  geometry.Rectangle{Left: 1 * 26, Top: 9 * 24, Width: 26, Height: 24},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := tt.layout.Cells()
			if len(cells) != tt.wantCount {
				t.Fatalf("格子数量 = %d, want %d", len(cells), tt.wantCount)
			}
			last := cells[len(cells)-1]
			if last.Left != tt.wantLast.Left || last.Top != tt.wantLast.Top ||
				last.Width != tt.wantLast.Width || last.Height != tt.wantLast.Height {
				t.Errorf("最后一个格子 = %v, want %v", last, tt.wantLast)
			}
		})
	}
}

func TestLayoutAt(t *testing.T) {
	l := Layout{Rows: 6, Cols: 5, StepX: 10, StepY: 10, Width: 10, Height: 10, Trim: 1}

	cell, err := l.At(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Left != 20 || cell.Top != 10 {
		t.Errorf("At(2,3) = %v", cell)
	}
	if _, err := l.At(6, 5); err == nil {
		t.Error("被裁掉的格子应返回错误")
	}
	if _, err := l.At(0, 1); err == nil {
		t.Error("越界位置应返回错误")
	}
}

func TestIterator(t *testing.T) {
	it := NewIterator(Layout{Rows: 2, Cols: 2, StepX: 100, StepY: 100, Width: 100, Height: 100})

	if it.Count() != 4 {
		t.Errorf("Count() = %d, want 4", it.Count())
	}

	var centers []geometry.Point
	for {
		cell, ok := it.Next()
		if !ok {
			break
		}
		centers = append(centers, cell.Center())
	}

	expected := []geometry.Point{{X: 50, Y: 50}, {X: 150, Y: 50}, {X: 50, Y: 150}, {X: 150, Y: 150}}
	if len(centers) != len(expected) {
		t.Fatalf("迭代返回 %d 个格子, want %d", len(centers), len(expected))
	}
	for i, c := range centers {
		if c != expected[i] {
			t.Errorf("格子 %d 中心 = %v, want %v", i, c, expected[i])
		}
	}

	it.Reset()
	if cell, ok := it.Next(); !ok || cell.Center() != expected[0] || it.Index() != 0 {
		t.Error("Reset() 未正确重置")
	}
}

func BenchmarkParseGridPosition(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseGridPosition("7.4.2.2")
	}
}

func BenchmarkLayoutCells(b *testing.B) {
	l := Layout{Rows: 10, Cols: 7, StepX: 26, StepY: 24, Width: 26, Height: 24, Trim: 5}
	for i := 0; i < b.N; i++ {
		l.Cells()
	}
}
