package calibration

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/vision/cv"
)

var (
	fixedMinimap = geometry.Rectangle{Left: 500, Top: 10, Width: 200, Height: 160}
	fixedChat    = geometry.Rectangle{Left: 0, Top: 340, Width: 519, Height: 140}
	fixedPanel   = geometry.Rectangle{Left: 520, Top: 180, Width: 241, Height: 300}
)

func sameBox(a, b geometry.Rectangle) bool {
	return a.Left == b.Left && a.Top == b.Top && a.Width == b.Width && a.Height == b.Height
}

func TestBuildFixedMinimap(t *testing.T) {
	r := Build(FixedLayout, fixedMinimap, fixedChat, fixedPanel)

	tests := []struct {
		name string
		got  geometry.Rectangle
		want geometry.Rectangle
	}{
		{"minimap_area", r.MinimapArea, geometry.Rectangle{Left: 499, Top: 10, Width: 248, Height: 164}},
		{"compass_orb", r.CompassOrb, geometry.Rectangle{Left: 527, Top: 12, Width: 34, Height: 35}},
		{"hp_orb", r.HPOrb, geometry.Rectangle{Left: 525, Top: 53, Width: 28, Height: 28}},
		{"spec_orb", r.SpecOrb, geometry.Rectangle{Left: 557, Top: 144, Width: 28, Height: 28}},
		{"run_orb_text", r.RunOrbText, geometry.Rectangle{Left: 513, Top: 130, Width: 22, Height: 14}},
		{"minimap", r.Minimap, geometry.Rectangle{Left: 552, Top: 14, Width: 147, Height: 159}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !sameBox(tt.got, tt.want) {
				t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
			}
		})
	}

	for _, rounded := range []geometry.Rectangle{r.CompassOrb, r.HPOrb, r.Minimap} {
		if len(rounded.Subtract) == 0 {
			t.Errorf("圆形区域 %s 缺少涂黑条带", rounded)
		}
	}
	if len(r.HPOrbText.Subtract) != 0 {
		t.Error("文字框不应有涂黑条带")
	}
}

func TestBuildChat(t *testing.T) {
	r := Build(FixedLayout, fixedMinimap, fixedChat, fixedPanel)

	if len(r.ChatTabs) != 7 || len(r.ChatHistory) != 8 {
		t.Fatalf("聊天标签 %d 个, 聊天行 %d 行", len(r.ChatTabs), len(r.ChatHistory))
	}
	if r.ChatTabs[6].Left != 374 || r.ChatTabs[6].Top != 458 {
		t.Errorf("最后一个聊天标签位置错误: %s", r.ChatTabs[6])
	}
	if r.ChatHistory[0].Top != 421 || r.ChatHistory[7].Top != 421-7*14 {
		t.Errorf("聊天行位置错误: %s, %s", r.ChatHistory[0], r.ChatHistory[7])
	}
	if r.ChatHistory[0].Width != 519-12-17 || r.ChatHistory[0].Height != 16 {
		t.Errorf("聊天行尺寸错误: %s", r.ChatHistory[0])
	}
	if r.ChatInput.Top != 437 || r.ChatInput.Width != 507 {
		t.Errorf("输入行错误: %s", r.ChatInput)
	}
	if !sameBox(r.ChatArea, geometry.Rectangle{Left: 0, Top: 339, Width: 519, Height: 142}) {
		t.Errorf("聊天遮挡区域错误: %s", r.ChatArea)
	}
}

func TestBuildControlPanel(t *testing.T) {
	r := Build(FixedLayout, fixedMinimap, fixedChat, fixedPanel)

	if !sameBox(r.ControlPanel, geometry.Rectangle{Left: 520, Top: 179, Width: 241, Height: 301}) {
		t.Errorf("控制面板错误: %s", r.ControlPanel)
	}
	if !sameBox(r.ControlPanelArea, geometry.Rectangle{Left: 499, Top: 179, Width: 248, Height: 301}) {
		t.Errorf("固定布局的控制面板遮挡区域应与小地图区域同宽: %s", r.ControlPanelArea)
	}
	if r.PrayerBar.Left != 526+18+192 {
		t.Errorf("祈祷条位置错误: %s", r.PrayerBar)
	}

	if len(r.InventorySlots) != 28 || len(r.Prayers) != 29 || len(r.SpellbookNormal) != 65 {
		t.Fatalf("格子数量错误: inventory=%d prayers=%d spells=%d",
			len(r.InventorySlots), len(r.Prayers), len(r.SpellbookNormal))
	}
	if !sameBox(r.InventorySlots[0], geometry.Rectangle{Left: 555, Top: 220, Width: 43, Height: 39}) {
		t.Errorf("第一个背包格子错误: %s", r.InventorySlots[0])
	}
	if !sameBox(r.InventorySlots[27], geometry.Rectangle{Left: 555 + 3*42, Top: 220 + 6*36, Width: 43, Height: 39}) {
		t.Errorf("最后一个背包格子错误: %s", r.InventorySlots[27])
	}
	if r.Prayers[0].Left != r.Inventory.Left || r.Prayers[0].Top != r.Inventory.Top+3 {
		t.Errorf("第一个祈祷位置错误: %s", r.Prayers[0])
	}

	if len(r.CPTabs) != 14 {
		t.Fatalf("控制面板标签数量 = %d", len(r.CPTabs))
	}
	last := r.CPTabs[6]
	if last.Left+last.Width != r.CPTop.Left+1+r.CPTop.Width {
		t.Errorf("顶部标签行应与 cp_top 同宽: %s vs %s", last, r.CPTop)
	}
	if r.CPTabs[7].Top != r.CPBottom.Top {
		t.Errorf("底部标签行位置错误: %s", r.CPTabs[7])
	}
}

func TestBuildGameViewFixed(t *testing.T) {
	r := Build(FixedLayout, fixedMinimap, fixedChat, fixedPanel)

	area := r.GameViewArea
	if !sameBox(area, geometry.Rectangle{Left: 0, Top: 10, Width: 761, Height: 470}) {
		t.Errorf("游戏视图外包框错误: %s", area)
	}
	if len(area.Subtract) != 3 {
		t.Fatalf("应减去 3 个锚点区域, 实际 %d", len(area.Subtract))
	}
	if !sameBox(area.Subtract[0], geometry.Rectangle{Left: 499, Top: 0, Width: 248, Height: 164}) {
		t.Errorf("小地图遮挡区域应为局部坐标: %s", area.Subtract[0])
	}

	// 固定布局的游戏视图带 3 像素边框
	if !sameBox(r.GameView, geometry.Rectangle{Left: 0, Top: 10, Width: 761 - 248 + 3, Height: 470 - 142 + 3}) {
		t.Errorf("游戏视图错误: %s", r.GameView)
	}
	if !sameBox(r.Mouseover, geometry.Rectangle{Left: 0, Top: 10, Width: 407, Height: 26}) {
		t.Errorf("悬停文字区域错误: %s", r.Mouseover)
	}
	if r.GridInfo.Left != 10 || r.GridInfo.Top != 38 || r.GridInfo.Height != 51 {
		t.Errorf("坐标信息框错误: %s", r.GridInfo)
	}
	if r.ChunkID.Top != 38+16 || r.RegionID.Top != 38+32 || r.RegionID.Height != 19 {
		t.Errorf("坐标信息行错误: chunk=%s region=%s", r.ChunkID, r.RegionID)
	}
	if r.XPTotal.Left != 499-105 || r.XPTotal.Top != 19 {
		t.Errorf("经验总数区域错误: %s", r.XPTotal)
	}
}

func TestBuildGameViewResizable(t *testing.T) {
	r := Build(ResizableLayout, fixedMinimap, fixedChat, fixedPanel)

	if !sameBox(r.ControlPanelArea, r.ControlPanel) {
		t.Errorf("可缩放布局的控制面板遮挡区域应等于控制面板: %s", r.ControlPanelArea)
	}
	if !sameBox(r.GameView, r.GameViewArea) || len(r.GameView.Subtract) != 3 {
		t.Errorf("可缩放布局的游戏视图应为外包框减去锚点区域: %s", r.GameView)
	}
	if r.XPTotal.Left != r.MinimapArea.Left-144 || r.GridInfo.Left != r.GameView.Left+6 {
		t.Errorf("可缩放布局偏移错误: xp=%s grid=%s", r.XPTotal, r.GridInfo)
	}
}

func TestLookup(t *testing.T) {
	r := Build(FixedLayout, fixedMinimap, fixedChat, fixedPanel)

	got, err := r.Lookup("inventory_slots_3")
	if err != nil {
		t.Fatal(err)
	}
	if !sameBox(got, r.InventorySlots[3]) {
		t.Errorf("Lookup 返回 %s", got)
	}
	if _, err := r.Lookup("minimap"); err != nil {
		t.Error(err)
	}
	if _, err := r.Lookup("nope"); err == nil {
		t.Error("未知区域应返回错误")
	}
}

func TestWidthTables(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"orb", 28, 28},
		{"fixed compass", 34, 35},
		{"resizable minimap", 162, 162},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := WidthTables(tt.w, tt.h)
			if len(left) != tt.h || len(right) != tt.h {
				t.Fatalf("表长度错误: %d, %d", len(left), len(right))
			}
			mid := tt.h / 2
			if left[mid] > 1 || right[mid] < tt.w-1 {
				t.Errorf("中间行几乎不应涂黑: left=%d right=%d", left[mid], right[mid])
			}
			if left[0] <= left[mid] || right[0] >= right[mid] {
				t.Errorf("首行应比中间行涂黑更多: left=%d right=%d", left[0], right[0])
			}
			for i := range left {
				if left[i] != left[tt.h-1-i] {
					t.Errorf("第 %d 行与第 %d 行不对称", i, tt.h-1-i)
				}
				if left[i] > right[i] {
					t.Errorf("第 %d 行左右边界交叉", i)
				}
			}
		})
	}
}

type matCapturer struct {
	img gocv.Mat
}

func (m matCapturer) CaptureRegion(x, y, w, h int) (gocv.Mat, error) {
	roi := m.img.Region(image.Rect(x, y, x+w, y+h))
	defer roi.Close()
	return roi.Clone(), nil
}

func TestRoundedCaptureBlacksCorners(t *testing.T) {
	screen := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 150, 200, 0), 40, 40, gocv.MatTypeCV8UC3)
	defer screen.Close()

	orb := rounded(geometry.Rectangle{Left: 5, Top: 5, Width: 28, Height: 28})
	img, err := orb.Capture(matCapturer{img: screen})
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()

	if v := img.GetVecbAt(0, 0); v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Errorf("角落应被涂黑: %v", v)
	}
	if v := img.GetVecbAt(14, 14); v[0] != 100 {
		t.Errorf("中心不应被涂黑: %v", v)
	}
}

func noiseImage(rows, cols int) gocv.Mat {
	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	gocv.RandU(&img, gocv.NewScalar(30, 30, 30, 0), gocv.NewScalar(220, 220, 220, 0))
	return img
}

// calibrationFixture 在噪声屏幕上布置锚点，返回屏幕、窗口矩形和模板根目录
type calibrationFixture struct {
	screen gocv.Mat
	window geometry.Rectangle
	root   string
}

func newFixture(t *testing.T) *calibrationFixture {
	t.Helper()
	return &calibrationFixture{
		screen: noiseImage(600, 1000),
		window: geometry.Rectangle{Left: 100, Top: 50, Width: 800, Height: 500},
		root:   t.TempDir(),
	}
}

// anchor 把屏幕 (x, y) 处 w×h 的图块保存为模板
func (f *calibrationFixture) anchor(t *testing.T, name string, x, y, w, h int) {
	t.Helper()
	roi := f.screen.Region(image.Rect(x, y, x+w, y+h))
	defer roi.Close()
	if err := cv.WriteImage(filepath.Join(f.root, TemplateFolder, name+".png"), roi); err != nil {
		t.Fatal(err)
	}
}

// absent 保存一张屏幕中不存在的模板
func (f *calibrationFixture) absent(t *testing.T, name string) {
	t.Helper()
	img := noiseImage(30, 30)
	defer img.Close()
	if err := cv.WriteImage(filepath.Join(f.root, TemplateFolder, name+".png"), img); err != nil {
		t.Fatal(err)
	}
}

func (f *calibrationFixture) calibrate() (*Regions, error) {
	lib := cv.NewLibrary(f.root)
	defer lib.Close()
	return NewCalibrator(lib, matCapturer{img: f.screen}).Calibrate(f.window)
}

func TestCalibrateFixed(t *testing.T) {
	f := newFixture(t)
	defer f.screen.Close()

	f.anchor(t, FixedLayout.Template(), 660, 60, 40, 30)
	f.absent(t, ResizableLayout.Template())
	f.anchor(t, ChatTemplate, 110, 450, 60, 40)
	f.anchor(t, ControlPanelTemplate, 700, 250, 50, 50)

	r, err := f.calibrate()
	if err != nil {
		t.Fatalf("校准失败: %v", err)
	}
	if r.Layout.Mode != Fixed {
		t.Errorf("布局 = %s, want fixed", r.Layout)
	}
	if r.HPOrb.Left != 685 || r.HPOrb.Top != 103 {
		t.Errorf("锚点应换算为屏幕坐标: hp_orb=%s", r.HPOrb)
	}
	if r.Chat.Left != 110 || r.Chat.Top != 450 {
		t.Errorf("聊天框位置错误: %s", r.Chat)
	}
	if !sameBox(r.Window, f.window) {
		t.Errorf("窗口矩形未记录: %s", r.Window)
	}
}

func TestCalibrateResizable(t *testing.T) {
	f := newFixture(t)
	defer f.screen.Close()

	f.absent(t, FixedLayout.Template())
	f.anchor(t, ResizableLayout.Template(), 660, 60, 40, 30)
	f.anchor(t, ChatTemplate, 110, 450, 60, 40)
	f.anchor(t, ControlPanelTemplate, 700, 250, 50, 50)

	r, err := f.calibrate()
	if err != nil {
		t.Fatalf("校准失败: %v", err)
	}
	if r.Layout.Mode != Resizable {
		t.Errorf("布局 = %s, want resizable", r.Layout)
	}
}

func TestCalibrateMissingAnchor(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, f *calibrationFixture)
		wantMissing []string
	}{
		{
			name: "chat not on screen",
			setup: func(t *testing.T, f *calibrationFixture) {
				f.anchor(t, FixedLayout.Template(), 660, 60, 40, 30)
				f.absent(t, ChatTemplate)
				f.anchor(t, ControlPanelTemplate, 700, 250, 50, 50)
			},
			wantMissing: []string{"chat"},
		},
		{
			name: "control panel template missing",
			setup: func(t *testing.T, f *calibrationFixture) {
				f.anchor(t, FixedLayout.Template(), 660, 60, 40, 30)
				f.anchor(t, ChatTemplate, 110, 450, 60, 40)
			},
			wantMissing: []string{"control_panel"},
		},
		{
			name: "nothing on screen",
			setup: func(t *testing.T, f *calibrationFixture) {
				f.absent(t, FixedLayout.Template())
				f.absent(t, ResizableLayout.Template())
				f.absent(t, ChatTemplate)
				f.absent(t, ControlPanelTemplate)
			},
			wantMissing: []string{"minimap", "chat", "control_panel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			defer f.screen.Close()
			tt.setup(t, f)

			r, err := f.calibrate()
			if r != nil {
				t.Error("失败时不应返回部分结果")
			}
			var initErr *WindowInitializationError
			if !errors.As(err, &initErr) {
				t.Fatalf("应返回 WindowInitializationError, 实际 %v", err)
			}
			if len(initErr.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want %v", initErr.Missing, tt.wantMissing)
			}
			for i := range tt.wantMissing {
				if initErr.Missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing = %v, want %v", initErr.Missing, tt.wantMissing)
				}
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"fixed", "FIXED_CLASSIC"} {
		if m, err := ParseMode(s); err != nil || m != Fixed {
			t.Errorf("ParseMode(%q) = %v, %v", s, m, err)
		}
	}
	if _, err := ParseMode("modern"); err == nil {
		t.Error("未知布局应返回错误")
	}
	if l, err := LayoutFor(Resizable); err != nil || l.Template() != "minimap-resizable-classic" {
		t.Errorf("LayoutFor(Resizable) = %v, %v", l, err)
	}
}
