// Package ai управляет NPC: захват ближайшей цели и сближение с ней через
// приказы на движение.
package ai

import (
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/nav"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

// State представляет состояние конечного автомата
type State interface {
	Name() string
	Enter(e *entity.Entity, ctx *Context)
	Update(e *entity.Entity, ctx *Context) State
	Exit(e *entity.Entity, ctx *Context)
}

// Context представляет доступ состояний к миру на время тика
type Context struct {
	Registry   *entity.Registry
	Index      *world.EntityGridMap
	Mapper     grid.Mapper
	ArriveDist float64

	orders []nav.OrderMovementEvent
}

// Order ставит приказ на движение в очередь тика
func (c *Context) Order(o nav.OrderMovementEvent) {
	c.orders = append(c.orders, o)
}

// Orders возвращает накопленные приказы
func (c *Context) Orders() []nav.OrderMovementEvent { return c.orders }

// Machine хранит текущее состояние каждой сущности
type Machine struct {
	states map[entity.ID]State
}

// NewMachine создаёт пустой автомат
func NewMachine() *Machine {
	return &Machine{states: make(map[entity.ID]State)}
}

// Current возвращает текущее состояние сущности
func (m *Machine) Current(id entity.ID) (State, bool) {
	s, ok := m.states[id]
	return s, ok
}

// SetState устанавливает новое состояние сущности
func (m *Machine) SetState(e *entity.Entity, state State, ctx *Context) {
	if cur, ok := m.states[e.ID]; ok && cur != nil {
		cur.Exit(e, ctx)
	}

	m.states[e.ID] = state

	if state != nil {
		state.Enter(e, ctx)
		if e.Brain != nil {
			e.Brain.State = state.Name()
		}
	}
}

// Update обновляет состояние сущности
func (m *Machine) Update(e *entity.Entity, ctx *Context) {
	cur, ok := m.states[e.ID]
	if !ok || cur == nil {
		m.SetState(e, &IdleState{}, ctx)
		cur = m.states[e.ID]
	}
	if next := cur.Update(e, ctx); next != cur {
		m.SetState(e, next, ctx)
	}
}

// Forget удаляет состояние исчезнувшей сущности
func (m *Machine) Forget(id entity.ID) {
	delete(m.states, id)
}

// Len количество сущностей под управлением автомата
func (m *Machine) Len() int { return len(m.states) }

// === Конкретные состояния ===

// IdleState - ожидание цели
type IdleState struct{}

func (s *IdleState) Name() string { return "idle" }

func (s *IdleState) Enter(e *entity.Entity, ctx *Context) {}

func (s *IdleState) Update(e *entity.Entity, ctx *Context) State {
	if target, ok := e.Brain.Lock.Target(); ok {
		return &ApproachState{target: target}
	}
	return s
}

func (s *IdleState) Exit(e *entity.Entity, ctx *Context) {}

// ApproachState - сближение с захваченной целью
type ApproachState struct {
	target entity.ID
}

func (s *ApproachState) Name() string { return "approach" }

func (s *ApproachState) Enter(e *entity.Entity, ctx *Context) {
	s.order(e, ctx)
}

func (s *ApproachState) Update(e *entity.Entity, ctx *Context) State {
	target, ok := e.Brain.Lock.Target()
	if !ok || target != s.target {
		return &IdleState{}
	}

	// Маршрут завершён, но цель успела отойти
	if e.Nav == nil && e.Brain.Lock.Distance() > ctx.ArriveDist {
		s.order(e, ctx)
	}
	return s
}

func (s *ApproachState) Exit(e *entity.Entity, ctx *Context) {
	e.Nav = nil
	if e.Body != nil {
		e.Body.Velocity = vec.Zero
	}
	if e.Animation == entity.AnimWalk {
		e.Animation = entity.AnimIdle
	}
}

func (s *ApproachState) order(e *entity.Entity, ctx *Context) {
	ctx.Order(nav.OrderMovementEvent{
		Mover:      e.ID,
		Target:     nav.DynamicTarget(s.target),
		Speed:      e.Brain.Speed,
		ArriveDist: ctx.ArriveDist,
	})
}
