package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zoeyai/zoeysight/pkg/color"
	"github.com/zoeyai/zoeysight/pkg/geometry"
	"github.com/zoeyai/zoeysight/pkg/navigation"
	"github.com/zoeyai/zoeysight/pkg/vision/ocr"
)

// ErrNoReading 区域内没有识别出数字
var ErrNoReading = errors.New("未识别到数值")

// mouseoverColors 悬停文字默认颜色
func (e *Engine) mouseoverColors(colors []color.Color) []color.Color {
	if len(colors) > 0 {
		return colors
	}
	return []color.Color{
		e.Color(color.BGR, "off_white_text"),
		e.Color(color.BGR, "off_cyan_text"),
	}
}

// chatColors 聊天记录默认颜色
func (e *Engine) chatColors(colors []color.Color) []color.Color {
	if len(colors) > 0 {
		return colors
	}
	return []color.Color{
		e.Color(color.BGR, "black"),
		e.Color(color.BGR, "off_red_text"),
	}
}

// MouseoverText 读取左上角悬停文字（无空格）
func (e *Engine) MouseoverText(colors ...color.Color) (string, error) {
	regions, err := e.Regions()
	if err != nil {
		return "", err
	}
	font, err := e.font(ocr.Bold12)
	if err != nil {
		return "", err
	}
	return ocr.ScrapeRect(regions.Mouseover, e.capturer, font, e.mouseoverColors(colors))
}

// MouseoverContains 悬停文字中是否出现任一短语（区分大小写）
func (e *Engine) MouseoverContains(phrases []string, colors ...color.Color) (bool, error) {
	regions, err := e.Regions()
	if err != nil {
		return false, err
	}
	font, err := e.font(ocr.Bold12)
	if err != nil {
		return false, err
	}
	boxes, err := ocr.FindPhraseInRect(regions.Mouseover, e.capturer, font, e.mouseoverColors(colors), phrases)
	if err != nil {
		return false, err
	}
	return len(boxes) > 0, nil
}

// confirmMouseover 未要求文字时直接视为命中
func (e *Engine) confirmMouseover(reqText []string, colors []color.Color) (bool, error) {
	if len(reqText) == 0 {
		return true, nil
	}
	return e.MouseoverContains(reqText, colors...)
}

// ChatHistory 按从新到旧的顺序读取聊天记录，每行去掉空格
func (e *Engine) ChatHistory(colors ...color.Color) ([]string, error) {
	regions, err := e.Regions()
	if err != nil {
		return nil, err
	}
	font, err := e.font(ocr.Plain12)
	if err != nil {
		return nil, err
	}
	colors = e.chatColors(colors)
	lines := make([]string, 0, len(regions.ChatHistory))
	for _, line := range regions.ChatHistory {
		text, err := ocr.ScrapeRect(line, e.capturer, font, colors)
		if err != nil {
			return nil, err
		}
		lines = append(lines, text)
	}
	return lines, nil
}

// readText 以指定字体与颜色读取区域
func (e *Engine) readText(rect geometry.Rectangle, fontName string, colors []color.Color, opts ...ocr.Option) (string, error) {
	font, err := e.font(fontName)
	if err != nil {
		return "", err
	}
	return ocr.ScrapeRect(rect, e.capturer, font, colors, opts...)
}

// readWhite 以 PLAIN_12 白色读取信息框
func (e *Engine) readWhite(rect geometry.Rectangle, opts ...ocr.Option) (string, error) {
	return e.readText(rect, ocr.Plain12, []color.Color{e.Color(color.BGR, "white")}, opts...)
}

// digits 拼接文字中的全部数字
func digits(name, text string) (int, error) {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return -1, fmt.Errorf("%w: %s %q", ErrNoReading, name, text)
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return -1, fmt.Errorf("无法解析 %s: %w", name, err)
	}
	return v, nil
}

// readOrb 以 PLAIN_11 读取小地图圆球上的数值，读取失败返回 -1
func (e *Engine) readOrb(name string, rect geometry.Rectangle, colors []color.Color, opts ...ocr.Option) (int, error) {
	text, err := e.readText(rect, ocr.Plain11, colors, opts...)
	if err != nil {
		return -1, err
	}
	return digits(name, text)
}

func (e *Engine) bgr(names ...string) []color.Color {
	out := make([]color.Color, len(names))
	for i, name := range names {
		out[i] = e.Color(color.BGR, name)
	}
	return out
}

// HP 读取生命值
func (e *Engine) HP() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	return e.readOrb("HP", regions.HPOrbText, e.bgr("green", "red"))
}

// Prayer 读取祈祷点数
func (e *Engine) Prayer() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	return e.readOrb("Prayer", regions.PrayerOrbText, e.bgr("green", "red"))
}

// runEnergyColors 跑步能量按 10% 分段变色
var runEnergyColors = []string{
	"orb_text_100_90", "orb_text_90_80", "orb_text_80_70", "orb_text_70_60", "orb_text_60_50",
	"orb_text_50_40", "orb_text_40_30", "orb_text_30_20", "orb_text_20_10", "orb_text_10_0",
}

// RunEnergy 读取跑步能量
func (e *Engine) RunEnergy() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	// O 与 l 在该字号下与 0、1 难以区分
	return e.readOrb("RunEnergy", regions.RunOrbText, e.bgr(runEnergyColors...),
		ocr.WithExclude(ocr.ProblematicChars+"Ool"))
}

// SpecialEnergy 读取特殊攻击能量
func (e *Engine) SpecialEnergy() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	return e.readOrb("SpecialEnergy", regions.SpecOrbText, e.bgr("orb_green", "orb_red"))
}

// TotalXP 读取经验总数
//
// 经验框字号随客户端设置变化，依次尝试 PLAIN_11、PLAIN_12、BOLD_12，
// 取第一个读出文字的字体；未加载的字体跳过。
func (e *Engine) TotalXP() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	white := e.bgr("white")
	loaded := 0
	for _, name := range []string{ocr.Plain11, ocr.Plain12, ocr.Bold12} {
		if _, err := e.font(name); err != nil {
			continue
		}
		loaded++
		text, err := e.readText(regions.XPTotal, name, white)
		if err != nil {
			return -1, err
		}
		if text != "" {
			return digits("TotalXP", text)
		}
	}
	if loaded == 0 {
		return -1, fmt.Errorf("读取经验总数: %w", ocr.ErrNoFont)
	}
	return -1, fmt.Errorf("%w: TotalXP", ErrNoReading)
}

// IsDoingAction 游戏视图左上角的当前动作是否为 action（区分大小写）
func (e *Engine) IsDoingAction(action string) (bool, error) {
	regions, err := e.Regions()
	if err != nil {
		return false, err
	}
	font, err := e.font(ocr.Plain12)
	if err != nil {
		return false, err
	}
	boxes, err := ocr.FindPhraseInRect(regions.CurrentAction, e.capturer, font, e.bgr("green"), []string{action})
	if err != nil {
		return false, err
	}
	return len(boxes) > 0, nil
}

// ChatInputText 读取聊天输入行（无空格）
func (e *Engine) ChatInputText() (string, error) {
	regions, err := e.Regions()
	if err != nil {
		return "", err
	}
	return e.readText(regions.ChatInput, ocr.Plain12, e.bgr("black"))
}

// WorldPoint 读取信息框中的角色地块坐标
func (e *Engine) WorldPoint() (navigation.WorldPoint, error) {
	regions, err := e.Regions()
	if err != nil {
		return navigation.WorldPoint{}, err
	}
	// 坐标之间的逗号必须保留
	exclude := strings.ReplaceAll(ocr.ProblematicChars, ",", "")
	text, err := e.readWhite(regions.Tile, ocr.WithExclude(exclude))
	if err != nil {
		return navigation.WorldPoint{}, err
	}
	return navigation.ParseWorldPoint(text)
}

// ChunkID 读取 8x8 区块编号，读取失败返回 -1
func (e *Engine) ChunkID() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	text, err := e.readWhite(regions.ChunkID)
	if err != nil {
		return -1, err
	}
	return navigation.ParseID(text, "ChunkID")
}

// RegionID 读取 64x64 区域编号，读取失败返回 -1
func (e *Engine) RegionID() (int, error) {
	regions, err := e.Regions()
	if err != nil {
		return -1, err
	}
	text, err := e.readWhite(regions.RegionID)
	if err != nil {
		return -1, err
	}
	return navigation.ParseID(text, "RegionID")
}

// Position 角色当前地块，实现 navigation.Body
func (e *Engine) Position(ctx context.Context) (geometry.Point, error) {
	if err := ctx.Err(); err != nil {
		return geometry.Point{}, err
	}
	wp, err := e.WorldPoint()
	if err != nil {
		return geometry.Point{}, err
	}
	return wp.Point(), nil
}
