package navigation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// WorldPoint 世界坐标（地块）与楼层
type WorldPoint struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Plane int `json:"plane"`
}

// Point 丢弃楼层
func (w WorldPoint) Point() geometry.Point {
	return geometry.Point{X: w.X, Y: w.Y}
}

func (w WorldPoint) String() string {
	return fmt.Sprintf("(%d, %d, %d)", w.X, w.Y, w.Plane)
}

// ParseWorldPoint 解析网格信息面板中的坐标文字，如 "Tile3200,3200,0"
func ParseWorldPoint(text string) (WorldPoint, error) {
	body := strings.TrimPrefix(strings.TrimSpace(text), "Tile")
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return WorldPoint{}, fmt.Errorf("无法解析地块坐标: %q", text)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return WorldPoint{}, fmt.Errorf("无法解析地块坐标 %q: %w", text, err)
		}
		vals[i] = v
	}
	return WorldPoint{X: vals[0], Y: vals[1], Plane: vals[2]}, nil
}

// ParseID 解析带前缀的编号文字，如 ("ChunkID6422", "ChunkID")
func ParseID(text, prefix string) (int, error) {
	v, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(text), prefix))
	if err != nil {
		return -1, fmt.Errorf("无法解析 %s: %w", prefix, err)
	}
	return v, nil
}
