package server

import (
	"errors"
	"fmt"
)

// ErrUnknownObject 引用了不存在的游戏对象（Tick 内部逻辑错误）
var ErrUnknownObject = errors.New("unknown object")

// ObjectID 游戏对象标识，从 1 开始单调递增，不回收
type ObjectID uint32

// Vec2 二维位置 / 位移
type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// GameObject 会话控制的化身（服务端权威状态）
type GameObject struct {
	ID        ObjectID
	Owner     SessionID
	Position  Vec2
	Magnitude uint8 // 本 Tick 生效的（已裁剪）速度
	Dirty     bool  // 本 Tick 内被创建或移动，需要广播
}

// World 持有所有游戏对象；仅由 Tick 线程修改
type World struct {
	objects map[ObjectID]*GameObject
	byOwner map[SessionID]*GameObject
	order   []*GameObject
	nextID  ObjectID

	// 世界边界：位置被裁剪到 [0,width] x [0,height]
	width  float64
	height float64
}

func NewWorld(width, height float64) *World {
	return &World{
		objects: make(map[ObjectID]*GameObject),
		byOwner: make(map[SessionID]*GameObject),
		nextID:  1,
		width:   width,
		height:  height,
	}
}

// Spawn 创建新对象并返回其 ID，对象数量恰好加一
func (w *World) Spawn(owner SessionID, pos Vec2) ObjectID {
	o := &GameObject{ID: w.nextID, Owner: owner, Position: w.clamp(pos), Dirty: true}
	w.nextID++
	w.objects[o.ID] = o
	w.byOwner[owner] = o
	w.order = append(w.order, o)
	return o.ID
}

func (w *World) Get(id ObjectID) (GameObject, bool) {
	o, ok := w.objects[id]
	if !ok {
		return GameObject{}, false
	}
	return *o, true
}

func (w *World) FindByOwner(owner SessionID) (GameObject, bool) {
	o, ok := w.byOwner[owner]
	if !ok {
		return GameObject{}, false
	}
	return *o, true
}

// ApplyMovement 以已裁剪的位移推进对象，并做越界裁剪
func (w *World) ApplyMovement(id ObjectID, delta Vec2, magnitude uint8) error {
	o, ok := w.objects[id]
	if !ok {
		return fmt.Errorf("apply movement: %w: %d", ErrUnknownObject, id)
	}
	o.Position = w.clamp(o.Position.Add(delta))
	o.Magnitude = magnitude
	o.Dirty = true
	return nil
}

// All 按创建顺序返回对象副本
func (w *World) All() []GameObject {
	out := make([]GameObject, 0, len(w.order))
	for _, o := range w.order {
		out = append(out, *o)
	}
	return out
}

// EndTick 广播结束后调用：清除脏标记，速度归零（未移动的对象速度为 0）
func (w *World) EndTick() {
	for _, o := range w.order {
		o.Dirty = false
		o.Magnitude = 0
	}
}

func (w *World) Len() int { return len(w.order) }

func (w *World) clamp(p Vec2) Vec2 {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > w.width {
		p.X = w.width
	}
	if p.Y > w.height {
		p.Y = w.height
	}
	return p
}
