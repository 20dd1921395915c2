package grid

import "github.com/zoeyai/zoeysight/pkg/geometry"

// Iterator 网格迭代器，按行优先依次返回格子
type Iterator struct {
	layout  Layout
	current int
}

// NewIterator 创建网格迭代器
func NewIterator(layout Layout) *Iterator {
	return &Iterator{layout: layout}
}

// Next 获取下一个格子，遍历完毕时 ok 为 false
func (it *Iterator) Next() (cell geometry.Rectangle, ok bool) {
	if it.current >= it.layout.Count() {
		return geometry.Rectangle{}, false
	}
	cell = it.layout.Cell(it.current)
	it.current++
	return cell, true
}

// Index 上一次 Next 返回的格子序号
func (it *Iterator) Index() int {
	return it.current - 1
}

// Reset 重置迭代器
func (it *Iterator) Reset() {
	it.current = 0
}

// Count 返回总格子数
func (it *Iterator) Count() int {
	return it.layout.Count()
}
