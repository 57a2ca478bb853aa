package combat

import (
	"errors"
	"fmt"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/world"
)

// Resolver разрешает попадания живых экземпляров удара
type Resolver struct {
	Policy HitPolicy
	logger *logging.Logger
}

// NewResolver создаёт разрешитель попаданий с политикой policy
func NewResolver(policy HitPolicy) *Resolver {
	return &Resolver{
		Policy: policy,
		logger: logging.GetCombatLogger(),
	}
}

// ResolveHits для каждого живого экземпляра удара пробует полосу перед
// атакующим и выдаёт по одному событию на каждую найденную сущность,
// кроме самого атакующего. Индекс только читается, поэтому вызывать
// нужно после обновления координат в том же тике.
//
// Атакующие без направления или координат пропускаются; ошибки собираются
// в возвращаемый error (errors.Is(err, ErrInvariantViolation)).
func (r *Resolver) ResolveHits(reg *entity.Registry, index *world.EntityGridMap) ([]DamageEvent, error) {
	var swings []*entity.Entity
	reg.Each(func(e *entity.Entity) {
		if e.Attack != nil {
			swings = append(swings, e)
		}
	})

	var events []DamageEvent
	var errs []error
	for _, swing := range swings {
		attacker, ok := reg.Get(swing.Parent)
		if !ok {
			errs = append(errs, r.violation(swing.ID, "экземпляр удара без живого атакующего"))
			continue
		}
		if attacker.Facing == nil || attacker.Coordinate == nil || !attacker.Coordinate.Tracked {
			errs = append(errs, r.violation(attacker.ID, "у атакующего нет Facing или Coordinate"))
			continue
		}

		atk := swing.Attack
		atk.Resolved = true
		targets := world.ProbeEntities(index, attacker.Facing.Direction, attacker.Coordinate.Box, attacker.ID)
		for _, target := range targets {
			if target == swing.ID {
				continue
			}
			if r.Policy == SingleHitPerSwing {
				if _, hit := atk.Hits[target]; hit {
					continue
				}
				if atk.Hits == nil {
					atk.Hits = make(map[entity.ID]struct{})
				}
				atk.Hits[target] = struct{}{}
			}
			events = append(events, DamageEvent{
				Attacker: attacker.ID,
				Target:   target,
				Velocity: atk.Pushback,
				Damage:   atk.Damage,
				Hitstun:  atk.Hitstun,
			})
		}
	}

	if len(events) > 0 {
		r.logger.Debug("🎯 Разрешено попаданий: %d", len(events))
	}
	return events, errors.Join(errs...)
}

func (r *Resolver) violation(id entity.ID, reason string) error {
	err := fmt.Errorf("%w: %s: %s", ErrInvariantViolation, id, reason)
	r.logger.Warn("⚠️ %v", err)
	return err
}

// ApplyDamage применяет события урона: цель становится невидимой и
// переходит в анимацию получения удара. Повторное применение безвредно.
// Возвращает количество событий, нашедших живую цель.
func ApplyDamage(reg *entity.Registry, events []DamageEvent) int {
	applied := 0
	for _, ev := range events {
		target, ok := reg.Get(ev.Target)
		if !ok {
			continue
		}
		if target.Kind != entity.KindPlayer && target.Kind != entity.KindNPC {
			continue
		}
		target.Visible = false
		target.Animation = entity.AnimBeHit
		applied++
	}
	return applied
}
