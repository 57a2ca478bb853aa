package ai

import (
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/nav"
	"github.com/annel0/tile-brawl/internal/world"
)

// System обновляет мозги всех NPC за тик
type System struct {
	machine    *Machine
	mapper     grid.Mapper
	arriveDist float64
	logger     *logging.Logger
}

// NewSystem создаёт систему ИИ
func NewSystem(mapper grid.Mapper, arriveDist float64) *System {
	return &System{
		machine:    NewMachine(),
		mapper:     mapper,
		arriveDist: arriveDist,
		logger:     logging.GetComponentLogger("ai"),
	}
}

// Attach подписывает систему на исчезновение сущностей
func (s *System) Attach(reg *entity.Registry) {
	reg.OnDespawn(func(e *entity.Entity) {
		s.machine.Forget(e.ID)
	})
}

// Machine возвращает автомат состояний
func (s *System) Machine() *Machine { return s.machine }

// Update пересчитывает захваты и состояния, возвращает приказы на движение
func (s *System) Update(reg *entity.Registry, index *world.EntityGridMap) []nav.OrderMovementEvent {
	ctx := &Context{
		Registry:   reg,
		Index:      index,
		Mapper:     s.mapper,
		ArriveDist: s.arriveDist,
	}

	var brains []*entity.Entity
	reg.Each(func(e *entity.Entity) {
		if e.Brain != nil && e.Body != nil {
			brains = append(brains, e)
		}
	})

	for _, e := range brains {
		before := e.Brain.Lock
		after := UpdateLock(reg, index, s.mapper, e)
		if before.IsLocked() != after.IsLocked() {
			s.logger.Debug("🎯 %s %s: %s -> %s", e.Name, e.ID, before, after)
		}
		s.machine.Update(e, ctx)
	}
	return ctx.Orders()
}
