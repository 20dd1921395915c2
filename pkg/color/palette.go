package color

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

//go:embed palette.json
var defaultPaletteJSON []byte

// Palette 三张并行的命名颜色表
//
// 构造后只读，可在多个引擎实例之间共享。
type Palette struct {
	tables map[Space]map[string]Color
}

// paletteFile 调色板文件格式
//
// 每个条目为 [r,g,b] 单色或 [[lower],[upper]] 区间。
// bgr 表缺省时由 rgb 表按通道置换生成。
type paletteFile struct {
	RGB map[string]entry `json:"rgb"`
	BGR map[string]entry `json:"bgr"`
	HSV map[string]entry `json:"hsv"`
}

type entry struct {
	lower, upper [3]uint8
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("颜色条目格式错误: %w", err)
	}

	switch {
	case len(raw) == 3:
		v, err := toTriple(raw)
		if err != nil {
			return err
		}
		e.lower, e.upper = v, v
	case len(raw) == 2:
		lo, ok1 := raw[0].([]any)
		hi, ok2 := raw[1].([]any)
		if !ok1 || !ok2 {
			return fmt.Errorf("颜色区间必须是两个三元组: %s", data)
		}
		var err error
		if e.lower, err = toTriple(lo); err != nil {
			return err
		}
		if e.upper, err = toTriple(hi); err != nil {
			return err
		}
	default:
		return fmt.Errorf("颜色条目长度错误: %s", data)
	}
	return nil
}

func toTriple(raw []any) ([3]uint8, error) {
	var out [3]uint8
	if len(raw) != 3 {
		return out, fmt.Errorf("颜色分量必须为 3 个, 实际 %d", len(raw))
	}
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok || f < 0 || f > 255 || f != float64(int(f)) {
			return out, fmt.Errorf("颜色分量非法: %v", v)
		}
		out[i] = uint8(f)
	}
	return out, nil
}

// DefaultPalette 返回内置调色板
func DefaultPalette() *Palette {
	p, err := ParsePalette(defaultPaletteJSON)
	if err != nil {
		panic(fmt.Sprintf("内置调色板损坏: %v", err))
	}
	return p
}

// ParsePalette 解析调色板 JSON
func ParsePalette(data []byte) (*Palette, error) {
	var f paletteFile
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析调色板失败: %w", err)
	}

	p := &Palette{tables: map[Space]map[string]Color{
		RGB: toColors(f.RGB, RGB),
		BGR: toColors(f.BGR, BGR),
		HSV: toColors(f.HSV, HSV),
	}}

	// bgr 表缺省的条目由 rgb 表推导
	for name, c := range p.tables[RGB] {
		if _, ok := p.tables[BGR][name]; ok {
			continue
		}
		bgr, _ := c.Convert(BGR)
		p.tables[BGR][name] = bgr
	}
	return p, nil
}

// LoadPalette 以内置调色板为基础，叠加文件中的条目
//
// 文件不存在时直接返回内置调色板。
func LoadPalette(path string) (*Palette, error) {
	base := DefaultPalette()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("读取调色板文件失败: %w", err)
	}

	overlay, err := ParsePalette(data)
	if err != nil {
		return nil, err
	}
	return base.Merge(overlay), nil
}

func toColors(m map[string]entry, space Space) map[string]Color {
	out := make(map[string]Color, len(m))
	for name, e := range m {
		key := strings.ToUpper(name)
		out[key] = Color{Name: key, Lower: e.lower, Upper: e.upper, Space: space}
	}
	return out
}

// Merge 返回新调色板，other 中的同名条目覆盖当前条目
func (p *Palette) Merge(other *Palette) *Palette {
	out := &Palette{tables: map[Space]map[string]Color{}}
	for _, s := range []Space{RGB, BGR, HSV} {
		t := make(map[string]Color, len(p.tables[s]))
		for k, v := range p.tables[s] {
			t[k] = v
		}
		if other != nil {
			for k, v := range other.tables[s] {
				t[k] = v
			}
		}
		out.tables[s] = t
	}
	return out
}

// Lookup 按编码和名称查找颜色（名称不区分大小写）
func (p *Palette) Lookup(space Space, name string) (Color, bool) {
	c, ok := p.tables[space][strings.ToUpper(name)]
	return c, ok
}

// Get 查找颜色，不存在时返回错误
func (p *Palette) Get(space Space, name string) (Color, error) {
	c, ok := p.Lookup(space, name)
	if !ok {
		return Color{}, fmt.Errorf("调色板中不存在颜色 %s/%s", space, name)
	}
	return c, nil
}

// MustGet 查找颜色，不存在时 panic，仅用于内置颜色名
func (p *Palette) MustGet(space Space, name string) Color {
	c, err := p.Get(space, name)
	if err != nil {
		panic(err)
	}
	return c
}

// Names 返回某个编码下的全部颜色名（已排序）
func (p *Palette) Names(space Space) []string {
	names := make([]string, 0, len(p.tables[space]))
	for k := range p.tables[space] {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
