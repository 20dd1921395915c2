package calibration

import (
	"fmt"

	"github.com/zoeyai/zoeysight/pkg/auto/grid"
	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// 聊天框尺寸
const (
	chatTabCount      = 7 // 不含举报按钮
	chatLineCount     = 8
	chatButtonHeight  = 22
	chatButtonWidth   = 56
	chatButtonSpacing = 6
	chatScrollbar     = 16
	chatScrollbarGap  = 1
	chatBorder        = 6
	chatSeparator     = 1
	chatInputGap      = 1
	// PLAIN_12 字形上下各有 1 像素留白，行高需要额外补 2
	chatLinePad    = 2
	chatLineHeight = 14
	chatTabsX0     = 2
)

// 控制面板尺寸
const (
	barWidth       = 18
	barHeight      = 250
	prayerBarGap   = 192
	tabOuterWidth  = 37
	tabInnerWidth  = 33
	tabHeight      = 36
	tabsPerRow     = 7
	tabRowGap      = 263
	bottomTabWidth = 241
)

// 游戏视图内的信息框尺寸
const (
	gridInfoWidth = 125
	// PLAIN_12 字形高度
	gridCharHeight = 16
)

// Regions 校准得到的窗口子区域，全部为屏幕坐标
//
// 校准完成后只读；重新校准时整体替换。
type Regions struct {
	Layout Layout             `json:"-"`
	Window geometry.Rectangle `json:"window"`

	// 小地图
	CompassOrb    geometry.Rectangle `json:"compass_orb"`
	HPOrb         geometry.Rectangle `json:"hp_orb"`
	PrayerOrb     geometry.Rectangle `json:"prayer_orb"`
	RunOrb        geometry.Rectangle `json:"run_orb"`
	SpecOrb       geometry.Rectangle `json:"spec_orb"`
	HPOrbText     geometry.Rectangle `json:"hp_orb_text"`
	PrayerOrbText geometry.Rectangle `json:"prayer_orb_text"`
	RunOrbText    geometry.Rectangle `json:"run_orb_text"`
	SpecOrbText   geometry.Rectangle `json:"spec_orb_text"`
	Minimap       geometry.Rectangle `json:"minimap"`
	MinimapArea   geometry.Rectangle `json:"-"`

	// 聊天框
	Chat        geometry.Rectangle   `json:"chat"`
	ChatArea    geometry.Rectangle   `json:"-"`
	ChatTabs    []geometry.Rectangle `json:"chat_tabs"`
	ChatTabsAll geometry.Rectangle   `json:"chat_tabs_all"`
	ChatHistory []geometry.Rectangle `json:"chat_history"`
	ChatInput   geometry.Rectangle   `json:"chat_input"`

	// 控制面板
	ControlPanel     geometry.Rectangle   `json:"control_panel"`
	ControlPanelArea geometry.Rectangle   `json:"-"`
	HPBar            geometry.Rectangle   `json:"hp_bar"`
	PrayerBar        geometry.Rectangle   `json:"prayer_bar"`
	CPTop            geometry.Rectangle   `json:"cp_top"`
	CPBottom         geometry.Rectangle   `json:"cp_bot"`
	CPTabs           []geometry.Rectangle `json:"cp_tabs"`
	CPInner          geometry.Rectangle   `json:"cp_inner"`
	Inventory        geometry.Rectangle   `json:"inventory"`
	InventorySlots   []geometry.Rectangle `json:"inventory_slots"`
	Prayers          []geometry.Rectangle `json:"prayers"`
	SpellbookNormal  []geometry.Rectangle `json:"spellbook_normal"`

	// 游戏视图
	GameView      geometry.Rectangle `json:"game_view"`
	GameViewArea  geometry.Rectangle `json:"-"`
	Mouseover     geometry.Rectangle `json:"mouseover"`
	GridInfo      geometry.Rectangle `json:"grid_info"`
	Tile          geometry.Rectangle `json:"tile"`
	ChunkID       geometry.Rectangle `json:"chunk_id"`
	RegionID      geometry.Rectangle `json:"region_id"`
	CurrentAction geometry.Rectangle `json:"current_action"`
	XPTotal       geometry.Rectangle `json:"xp_total"`
}

// 背包、祈祷、法术书网格
var (
	inventoryGrid = grid.Layout{Rows: 7, Cols: 4, StepX: 42, StepY: 36, Width: 43, Height: 39}
	prayerGrid    = grid.Layout{Rows: 6, Cols: 5, StepX: 37, StepY: 37, Width: 37, Height: 37, Trim: 1}
	spellGrid     = grid.Layout{Rows: 10, Cols: 7, StepX: 26, StepY: 24, Width: 26, Height: 24, Trim: 5}
)

// Build 由三个锚点推导全部子区域
//
// minimap 为小地图模板的命中矩形，chat 与 controlPanel 同理，均为屏幕坐标。
// 推导顺序为 小地图 → 聊天框 → 控制面板 → 游戏视图，后者依赖前者。
func Build(layout Layout, minimap, chat, controlPanel geometry.Rectangle) *Regions {
	r := &Regions{Layout: layout}
	r.buildMinimap(minimap)
	r.buildChat(chat)
	r.buildControlPanel(controlPanel)
	r.buildGameView()
	return r
}

func (r *Regions) buildMinimap(mt geometry.Rectangle) {
	o := r.Layout.offsets

	r.MinimapArea = o.minimapArea.at(mt)
	r.CompassOrb = rounded(o.compass.at(mt))
	r.Minimap = rounded(o.minimap.at(mt))

	orbs := []*geometry.Rectangle{&r.HPOrb, &r.PrayerOrb, &r.RunOrb, &r.SpecOrb}
	texts := []*geometry.Rectangle{&r.HPOrbText, &r.PrayerOrbText, &r.RunOrbText, &r.SpecOrbText}
	for i := range orbs {
		*orbs[i] = rounded(o.orbs[i].at(mt))
		*texts[i] = o.orbText[i].at(mt)
	}
}

func (r *Regions) buildChat(chat geometry.Rectangle) {
	bottom := chat.Top + chat.Height

	r.Chat = chat
	r.ChatTabs = make([]geometry.Rectangle, chatTabCount)
	for i := range r.ChatTabs {
		r.ChatTabs[i] = geometry.Rectangle{
			Left:   chat.Left + chatTabsX0 + i*(chatButtonWidth+chatButtonSpacing),
			Top:    bottom - chatButtonHeight,
			Width:  chatButtonWidth,
			Height: chatButtonHeight,
		}
	}
	r.ChatTabsAll = geometry.Rectangle{
		Left:   chat.Left,
		Top:    bottom - chatButtonHeight - chatBorder/2,
		Width:  chat.Width,
		Height: chatButtonHeight + chatBorder,
	}

	// 自底向上跳过按钮行、输入行与分隔线
	y0 := chatButtonHeight + chatBorder + chatInputGap + chatLineHeight + chatSeparator + chatLineHeight
	r.ChatHistory = make([]geometry.Rectangle, chatLineCount)
	for i := range r.ChatHistory {
		r.ChatHistory[i] = geometry.Rectangle{
			Left:   chat.Left + chatBorder,
			Top:    bottom - y0 - i*chatLineHeight - 1,
			Width:  chat.Width - 2*chatBorder - chatScrollbar - chatScrollbarGap,
			Height: chatLineHeight + chatLinePad,
		}
	}
	r.ChatInput = geometry.Rectangle{
		Left:   chat.Left + chatBorder,
		Top:    bottom - y0 + chatLineHeight + chatSeparator,
		Width:  chat.Width - 2*chatBorder,
		Height: chatLineHeight + chatLinePad,
	}
	r.ChatArea = geometry.Rectangle{
		Left:   chat.Left,
		Top:    chat.Top - 1,
		Width:  chat.Width,
		Height: chat.Height + chatLinePad,
	}
}

func (r *Regions) buildControlPanel(cp geometry.Rectangle) {
	// 模板不含顶部边框
	r.ControlPanel = geometry.Rectangle{Left: cp.Left, Top: cp.Top - 1, Width: cp.Width, Height: cp.Height + 1}
	r.ControlPanelArea = r.ControlPanel
	if r.Layout.offsets.controlPanelSpansMinimap {
		r.ControlPanelArea = geometry.Rectangle{
			Left:   r.MinimapArea.Left,
			Top:    r.ControlPanel.Top,
			Width:  r.MinimapArea.Width,
			Height: cp.Height + 1,
		}
	}
	panel := r.ControlPanel

	r.HPBar = geometry.Rectangle{Left: panel.Left + 6, Top: panel.Top + 42, Width: barWidth, Height: barHeight}
	r.PrayerBar = geometry.Rectangle{
		Left:   r.HPBar.TopRight().X + prayerBarGap,
		Top:    r.HPBar.Top,
		Width:  barWidth,
		Height: barHeight,
	}

	r.CPTop = geometry.Rectangle{
		Left:   panel.Left,
		Top:    panel.Top,
		Width:  2*tabOuterWidth + (tabsPerRow-2)*tabInnerWidth,
		Height: tabHeight,
	}
	// 底部标签比顶部高 1 像素
	r.CPBottom = geometry.Rectangle{
		Left:   panel.Left,
		Top:    panel.Top + tabHeight + tabRowGap - 1,
		Width:  bottomTabWidth,
		Height: tabHeight + 1,
	}
	r.CPTabs = make([]geometry.Rectangle, 0, 2*tabsPerRow)
	for _, y := range []int{panel.Top, r.CPBottom.Top} {
		x := panel.Left + 1
		for j := 0; j < tabsPerRow; j++ {
			w := tabInnerWidth
			if j == 0 || j == tabsPerRow-1 {
				w = tabOuterWidth
			}
			r.CPTabs = append(r.CPTabs, geometry.Rectangle{Left: x, Top: y, Width: w, Height: tabHeight})
			x += w
		}
	}

	r.Inventory = geometry.Rectangle{Left: panel.Left + 27, Top: panel.Top + 41, Width: 186, Height: 251}
	r.CPInner = r.Inventory

	// 背包格子互相重叠，留出边框便于模板匹配
	inv := inventoryGrid
	inv.Origin = geometry.Point{X: r.Inventory.Left + 8, Y: r.Inventory.Top}
	r.InventorySlots = inv.Cells()

	pr := prayerGrid
	pr.Origin = geometry.Point{X: r.CPInner.Left, Y: r.CPInner.Top + 3}
	r.Prayers = pr.Cells()

	sp := spellGrid
	sp.Origin = geometry.Point{X: panel.Left + 29, Y: panel.Top + 36}
	r.SpellbookNormal = sp.Cells()
}

func (r *Regions) buildGameView() {
	area := geometry.Rectangle{
		Left:   r.Chat.Left,
		Top:    r.MinimapArea.Top,
		Width:  r.ControlPanel.BottomRight().X - r.Chat.Left,
		Height: r.ControlPanel.BottomRight().Y - r.MinimapArea.Top,
	}
	for _, s := range []geometry.Rectangle{r.MinimapArea, r.ChatArea, r.ControlPanelArea} {
		area.Subtract = append(area.Subtract, geometry.Rectangle{
			Left:   s.Left - area.Left,
			Top:    s.Top - area.Top,
			Width:  s.Width,
			Height: s.Height,
		})
	}
	r.GameViewArea = area
	r.GameView = area

	o := r.Layout.offsets
	if pad := o.gameViewPad; pad > 0 {
		// 顶部与左侧自带 pad 像素边框，右侧与底部补齐
		r.GameView = geometry.Rectangle{
			Left:   area.Left,
			Top:    area.Top,
			Width:  area.Width - r.MinimapArea.Width + pad,
			Height: area.Height - r.ChatArea.Height + pad,
		}
	}
	gv := r.GameView

	r.Mouseover = geometry.Rectangle{Left: gv.Left, Top: gv.Top, Width: 407, Height: 26}

	const dy = 1
	r.GridInfo = geometry.Rectangle{
		Left:   gv.Left + o.gridInfo.X,
		Top:    gv.Top + o.gridInfo.Y,
		Width:  gridInfoWidth,
		Height: 3 * (gridCharHeight + dy),
	}
	r.Tile = geometry.Rectangle{Left: r.GridInfo.Left, Top: r.GridInfo.Top, Width: gridInfoWidth, Height: gridCharHeight + dy}
	r.ChunkID = geometry.Rectangle{
		Left:   r.Tile.Left,
		Top:    r.Tile.Top + r.Tile.Height - dy,
		Width:  gridInfoWidth,
		Height: gridCharHeight + dy,
	}
	// 多留 2 像素给 Region 中 g 的下沿
	r.RegionID = geometry.Rectangle{
		Left:   r.ChunkID.Left,
		Top:    r.ChunkID.Top + r.ChunkID.Height - dy,
		Width:  gridInfoWidth,
		Height: gridCharHeight + 3*dy,
	}

	r.CurrentAction = geometry.Rectangle{Left: gv.Left + 10, Top: gv.Top + 24, Width: gridInfoWidth, Height: 18}
	r.XPTotal = geometry.Rectangle{
		Left:   r.MinimapArea.Left - o.xpTotal.X,
		Top:    gv.Top + o.xpTotal.Y,
		Width:  101,
		Height: 16,
	}
}

// Region 具名区域，列表类区域包含多个矩形
type Region struct {
	Name  string
	Rects []geometry.Rectangle
	List  bool
}

// All 按推导顺序列出全部公开区域，供快照与调试使用
func (r *Regions) All() []Region {
	one := func(name string, rect geometry.Rectangle) Region {
		return Region{Name: name, Rects: []geometry.Rectangle{rect}}
	}
	many := func(name string, rects []geometry.Rectangle) Region {
		return Region{Name: name, Rects: rects, List: true}
	}
	return []Region{
		one("compass_orb", r.CompassOrb),
		one("hp_orb", r.HPOrb),
		one("prayer_orb", r.PrayerOrb),
		one("run_orb", r.RunOrb),
		one("spec_orb", r.SpecOrb),
		one("hp_orb_text", r.HPOrbText),
		one("prayer_orb_text", r.PrayerOrbText),
		one("run_orb_text", r.RunOrbText),
		one("spec_orb_text", r.SpecOrbText),
		one("minimap", r.Minimap),
		one("chat", r.Chat),
		many("chat_tabs", r.ChatTabs),
		one("chat_tabs_all", r.ChatTabsAll),
		many("chat_history", r.ChatHistory),
		one("chat_input", r.ChatInput),
		one("control_panel", r.ControlPanel),
		one("hp_bar", r.HPBar),
		one("prayer_bar", r.PrayerBar),
		one("cp_top", r.CPTop),
		one("cp_bot", r.CPBottom),
		many("cp_tabs", r.CPTabs),
		one("cp_inner", r.CPInner),
		one("inventory", r.Inventory),
		many("inventory_slots", r.InventorySlots),
		many("prayers", r.Prayers),
		many("spellbook_normal", r.SpellbookNormal),
		one("game_view", r.GameView),
		one("mouseover", r.Mouseover),
		one("grid_info", r.GridInfo),
		one("tile", r.Tile),
		one("chunk_id", r.ChunkID),
		one("region_id", r.RegionID),
		one("current_action", r.CurrentAction),
		one("xp_total", r.XPTotal),
	}
}

// Lookup 按名称查找区域，列表类区域可用 name_i 取第 i 个
func (r *Regions) Lookup(name string) (geometry.Rectangle, error) {
	for _, reg := range r.All() {
		if !reg.List {
			if reg.Name == name {
				return reg.Rects[0], nil
			}
			continue
		}
		for i, rect := range reg.Rects {
			if fmt.Sprintf("%s_%d", reg.Name, i) == name {
				return rect, nil
			}
		}
	}
	return geometry.Rectangle{}, fmt.Errorf("未知区域: %s", name)
}

// validate 检查推导结果的尺寸
func (r *Regions) validate() error {
	for name, rect := range map[string]geometry.Rectangle{
		"game_view":      r.GameView,
		"game_view_area": r.GameViewArea,
	} {
		if rect.Width <= 0 || rect.Height <= 0 {
			return fmt.Errorf("%s 尺寸无效: %s", name, rect)
		}
	}
	return nil
}
