package entity

import (
	"time"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/physics"
	"github.com/annel0/tile-brawl/internal/vec"
)

// Kind тип сущности
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindNPC
	KindTile
	KindAttack
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	case KindTile:
		return "tile"
	case KindAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Animation состояние, которое читает анимационная система
type Animation uint8

const (
	AnimIdle Animation = iota
	AnimWalk
	AnimAttack
	AnimBeHit
)

func (a Animation) String() string {
	switch a {
	case AnimWalk:
		return "walk"
	case AnimAttack:
		return "attack"
	case AnimBeHit:
		return "be_hit"
	default:
		return "idle"
	}
}

// Coordinate бокс ячеек, в которых сущность числится в индексе
type Coordinate struct {
	Box     grid.BoundingBox
	Tracked bool // бокс уже записан в индекс
}

// Facing направление взгляда
type Facing struct {
	Direction grid.Facing
}

// Fighter способность атаковать
type Fighter struct {
	MoveLock bool
	Delay    Timer
}

// Attack экземпляр удара, дочерняя сущность атакующего
type Attack struct {
	Damage   int
	Pushback vec.Vec2Float
	Hitstun  time.Duration

	// Hits цели, уже получившие урон от этого замаха
	Hits map[ID]struct{}
	// Resolved хотя бы одна проба уже выполнена
	Resolved bool
}

// Interactor сущность, способная открывать консоль NPC
type Interactor struct {
	CurrentNPC ID
}

// Brain состояние ИИ-преследователя
type Brain struct {
	Range int     // радиус поиска в ячейках
	Speed float64 // скорость сближения
	Lock  TargetLock
	State string // имя текущего состояния автомата, для инспектора
}

// Navigation активный приказ на движение
type Navigation struct {
	Follow     ID            // цель-сущность, Nil для статической точки
	Goal       vec.Vec2Float // статическая точка или последняя позиция цели
	GoalCell   vec.Vec2      // ячейка, под которую строился путь
	Path       []vec.Vec2Float
	Speed      float64
	ArriveDist float64
}

// Entity сущность с опциональными компонентами (nil значит отсутствует)
type Entity struct {
	ID        ID
	Kind      Kind
	Name      string
	Parent    ID
	Children  []ID
	Visible   bool
	Animation Animation

	Body       *physics.Body
	Coordinate *Coordinate
	Facing     *Facing
	Fighter    *Fighter
	Attack     *Attack
	Interactor *Interactor
	Brain      *Brain
	Nav        *Navigation
}

// FacingOr возвращает направление взгляда либо def при отсутствии компонента
func (e *Entity) FacingOr(def grid.Facing) grid.Facing {
	if e.Facing == nil {
		return def
	}
	return e.Facing.Direction
}
