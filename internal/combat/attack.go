// Package combat реализует жизненный цикл удара ближнего боя:
// блокировка движения, экземпляр удара, разрешение попаданий и
// восстановление по таймеру задержки.
package combat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/vec"
)

// ErrInvariantViolation у атакующего нет компонентов, нужных для пробы.
// Ошибка восстановимая: атакующий пропускается в этом тике.
var ErrInvariantViolation = errors.New("combat invariant violation")

// AttackSpec параметры удара
type AttackSpec struct {
	Damage        int
	Pushback      vec.Vec2Float
	Hitstun       time.Duration
	SwingDuration time.Duration
}

// DefaultAttackSpec удар по умолчанию: урон 1, без отбрасывания, оглушение 1с, задержка 1с
func DefaultAttackSpec() AttackSpec {
	return AttackSpec{
		Damage:        1,
		Hitstun:       time.Second,
		SwingDuration: time.Second,
	}
}

// HitPolicy сколько раз экземпляр удара бьёт одну и ту же цель
type HitPolicy uint8

const (
	// Continuous событие урона каждый тик, пока цель в полосе удара
	Continuous HitPolicy = iota
	// SingleHitPerSwing не более одного события на цель за замах
	SingleHitPerSwing
)

func (p HitPolicy) String() string {
	if p == SingleHitPerSwing {
		return "single_hit"
	}
	return "continuous"
}

// ParseHitPolicy разбирает политику из конфигурации
func ParseHitPolicy(s string) (HitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continuous":
		return Continuous, nil
	case "single_hit", "single-hit-per-swing", "single":
		return SingleHitPerSwing, nil
	}
	return Continuous, fmt.Errorf("неизвестная политика попаданий: %q", s)
}

// DamageEvent событие урона; живёт в пределах тика
type DamageEvent struct {
	Attacker entity.ID     `json:"attacker"`
	Target   entity.ID     `json:"target"`
	Velocity vec.Vec2Float `json:"velocity"`
	Damage   int           `json:"damage"`
	Hitstun  time.Duration `json:"hitstun"`
}
