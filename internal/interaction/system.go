package interaction

import (
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

// Input фронты ввода за тик
type Input struct {
	Interact bool
	Close    bool
	Pause    bool
}

// Result что изменилось за тик
type Result struct {
	Opened entity.ID // NPC, чья консоль открыта
	Closed entity.ID // NPC, чья консоль закрыта
}

// System проверка досягаемости NPC и открытие/закрытие консоли
type System struct {
	logger *logging.Logger
}

// NewSystem создаёт систему взаимодействия
func NewSystem() *System {
	return &System{logger: logging.GetComponentLogger("interaction")}
}

// Update обрабатывает ввод игрока. В основной игре фронт interact при NPC
// в полосе перед игроком открывает его консоль; в открытой консоли фронт
// close её закрывает. Переходы только запрашиваются у автомата.
func (s *System) Update(reg *entity.Registry, index *world.EntityGridMap, player entity.ID, in Input, states *StateMachine) Result {
	var res Result
	p, ok := reg.Get(player)
	if !ok || p.Interactor == nil {
		return res
	}

	switch states.Current() {
	case MainGame:
		if in.Pause {
			states.Request(GamePaused)
			return res
		}
		if !in.Interact {
			return res
		}
		npc, found := s.npcInReach(reg, index, p)
		if !found {
			return res
		}
		p.Interactor.CurrentNPC = npc
		states.Request(ConsoleOpened)
		res.Opened = npc
		s.logger.Info("💬 Открыта консоль NPC %s", npc)

	case ConsoleOpened:
		if !in.Close {
			return res
		}
		res.Closed = p.Interactor.CurrentNPC
		p.Interactor.CurrentNPC = entity.Nil
		states.Request(MainGame)
		s.logger.Info("💬 Консоль NPC %s закрыта", res.Closed)

	case GamePaused:
		if in.Pause || in.Close {
			states.Request(MainGame)
		}
	}
	return res
}

func (s *System) npcInReach(reg *entity.Registry, index *world.EntityGridMap, p *entity.Entity) (entity.ID, bool) {
	if p.Facing == nil || p.Coordinate == nil || !p.Coordinate.Tracked {
		return entity.Nil, false
	}
	for _, id := range world.ProbeEntities(index, p.Facing.Direction, p.Coordinate.Box, p.ID) {
		if e, ok := reg.Get(id); ok && e.Kind == entity.KindNPC {
			return id, true
		}
	}
	return entity.Nil, false
}

// OnTransition применяет побочные эффекты перехода: при выходе из основной
// игры движение игрока блокируется (снимает блокировку восстановление
// после удара, и только в основной игре).
func OnTransition(reg *entity.Registry, player entity.ID, tr Transition) {
	if tr.From != MainGame || tr.To == MainGame {
		return
	}
	p, ok := reg.Get(player)
	if !ok {
		return
	}
	if p.Fighter != nil {
		p.Fighter.MoveLock = true
	}
	if p.Body != nil {
		p.Body.Velocity = vec.Zero
	}
	p.Animation = entity.AnimIdle
}
