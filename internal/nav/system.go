package nav

import (
	"math"
	"time"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/vec"
)

// PathTarget цель движения: неподвижная точка или сущность
type PathTarget struct {
	Point  vec.Vec2Float
	Entity entity.ID
}

// StaticTarget цель-точка
func StaticTarget(p vec.Vec2Float) PathTarget {
	return PathTarget{Point: p}
}

// DynamicTarget цель-сущность; путь перестраивается, когда она меняет ячейку
func DynamicTarget(id entity.ID) PathTarget {
	return PathTarget{Entity: id}
}

// IsDynamic сообщает, что цель это сущность
func (t PathTarget) IsDynamic() bool { return !t.Entity.IsNil() }

// OrderMovementEvent приказ на движение
type OrderMovementEvent struct {
	Mover      entity.ID
	Target     PathTarget
	Speed      float64
	ArriveDist float64 // для динамической цели: остановиться на этой дистанции
}

// System принимает приказы на движение и ведёт тела по маршрутам
type System struct {
	service *Service
	mapper  grid.Mapper
	logger  *logging.Logger
}

// NewSystem создаёт систему навигации поверх сервиса
func NewSystem(service *Service, mapper grid.Mapper) *System {
	return &System{
		service: service,
		mapper:  mapper,
		logger:  logging.GetNavLogger(),
	}
}

// Handle строит маршрут для каждого приказа. При ошибке сущность остаётся
// на месте, предыдущий приказ снимается. Возвращает число принятых приказов.
func (s *System) Handle(reg *entity.Registry, orders []OrderMovementEvent) int {
	accepted := 0
	for _, o := range orders {
		mover, ok := reg.Get(o.Mover)
		if !ok || mover.Body == nil {
			continue
		}

		goal, ok := s.resolveGoal(reg, o.Target)
		if !ok {
			s.stop(mover)
			continue
		}

		path, err := s.service.FindPath(mover.Body.Position, goal)
		if err != nil {
			s.logger.Debug("🚫 Маршрут для %s не найден: %v", o.Mover, err)
			s.stop(mover)
			continue
		}

		mover.Nav = &entity.Navigation{
			Follow:     o.Target.Entity,
			Goal:       goal,
			GoalCell:   s.mapper.CellOf(goal),
			Path:       path,
			Speed:      o.Speed,
			ArriveDist: o.ArriveDist,
		}
		accepted++
	}
	return accepted
}

func (s *System) resolveGoal(reg *entity.Registry, t PathTarget) (vec.Vec2Float, bool) {
	if !t.IsDynamic() {
		return t.Point, true
	}
	target, ok := reg.Get(t.Entity)
	if !ok || target.Body == nil {
		return vec.Vec2Float{}, false
	}
	return target.Body.Position, true
}

func (s *System) stop(e *entity.Entity) {
	e.Nav = nil
	if e.Body != nil {
		e.Body.Velocity = vec.Zero
	}
	if e.Animation == entity.AnimWalk {
		e.Animation = entity.AnimIdle
	}
}

// Follow задаёт скорость телам с активным маршрутом. Точки маршрута, до
// которых осталось меньше шага за dt, достигаются точно. Динамические цели
// перепланируются при смене ячейки цели. Возвращает прибывшие сущности.
func (s *System) Follow(reg *entity.Registry, dt time.Duration) []entity.ID {
	var movers []*entity.Entity
	reg.Each(func(e *entity.Entity) {
		if e.Nav != nil && e.Body != nil {
			movers = append(movers, e)
		}
	})

	var arrived []entity.ID
	for _, e := range movers {
		if e.Fighter != nil && e.Fighter.MoveLock {
			e.Body.Velocity = vec.Zero
			continue
		}
		nav := e.Nav

		if !nav.Follow.IsNil() {
			target, ok := reg.Get(nav.Follow)
			if !ok || target.Body == nil {
				s.stop(e)
				continue
			}
			if e.Body.Position.DistanceTo(target.Body.Position) <= nav.ArriveDist {
				s.stop(e)
				arrived = append(arrived, e.ID)
				continue
			}
			if cell := s.mapper.CellOf(target.Body.Position); cell != nav.GoalCell {
				path, err := s.service.FindPath(e.Body.Position, target.Body.Position)
				if err != nil {
					s.stop(e)
					continue
				}
				nav.Path = path
				nav.Goal = target.Body.Position
				nav.GoalCell = cell
			}
		}

		step := math.Max(1, nav.Speed*dt.Seconds())
		for len(nav.Path) > 0 && e.Body.Position.DistanceTo(nav.Path[0]) <= step {
			e.Body.Teleport(nav.Path[0])
			nav.Path = nav.Path[1:]
		}
		if len(nav.Path) == 0 {
			s.stop(e)
			arrived = append(arrived, e.ID)
			continue
		}

		dir := nav.Path[0].Sub(e.Body.Position).Normalized()
		e.Body.Velocity = dir.Mul(nav.Speed)
		if e.Facing != nil {
			e.Facing.Direction = grid.FacingFromVelocity(e.Body.Velocity, e.Facing.Direction)
		}
		e.Animation = entity.AnimWalk
	}
	return arrived
}
