package combat

import (
	"time"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/vec"
)

// Phase фаза удара для анимационной системы
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseWindup
	PhaseActive
	PhaseRecovering
)

func (p Phase) String() string {
	switch p {
	case PhaseWindup:
		return "windup"
	case PhaseActive:
		return "active"
	case PhaseRecovering:
		return "recovering"
	default:
		return "idle"
	}
}

// Lifecycle управляет началом удара и восстановлением
type Lifecycle struct {
	Spec   AttackSpec
	logger *logging.Logger
}

// NewLifecycle создаёт жизненный цикл с параметрами удара
func NewLifecycle(spec AttackSpec) *Lifecycle {
	return &Lifecycle{
		Spec:   spec,
		logger: logging.GetCombatLogger(),
	}
}

// Begin начинает удар, если движение атакующего не заблокировано:
// ставит блокировку, создаёт дочерний экземпляр удара, перезапускает
// задержку и переключает анимацию. Возвращает экземпляр удара.
func (l *Lifecycle) Begin(reg *entity.Registry, attacker entity.ID) (entity.ID, bool) {
	e, ok := reg.Get(attacker)
	if !ok || e.Fighter == nil {
		return entity.Nil, false
	}
	if e.Fighter.MoveLock {
		return entity.Nil, false
	}

	e.Fighter.MoveLock = true
	e.Animation = entity.AnimAttack
	e.Fighter.Delay.Reset(l.Spec.SwingDuration)
	if e.Body != nil {
		e.Body.Velocity = vec.Zero
	}

	swing := reg.Spawn(entity.KindAttack, "attack")
	swing.Visible = false
	swing.Attack = &entity.Attack{
		Damage:   l.Spec.Damage,
		Pushback: l.Spec.Pushback,
		Hitstun:  l.Spec.Hitstun,
	}
	if err := reg.SetParent(swing.ID, attacker); err != nil {
		// родитель только что найден, сюда попасть нельзя
		reg.Despawn(swing.ID)
		return entity.Nil, false
	}

	l.logger.WithFields(map[string]interface{}{
		"attacker": attacker.String(),
		"attack":   swing.ID.String(),
	}).Debug("⚔️ Удар начат")
	return swing.ID, true
}

// Recover продвигает задержку каждого бойца на dt. Когда задержка истекла,
// экземпляры удара удаляются вместе с потомками, а при unlock снимается
// блокировка движения. Возвращает бойцов, с которых сняли блокировку.
func (l *Lifecycle) Recover(reg *entity.Registry, dt time.Duration, unlock bool) []entity.ID {
	var fighters []*entity.Entity
	reg.Each(func(e *entity.Entity) {
		if e.Fighter != nil {
			fighters = append(fighters, e)
		}
	})

	var unlocked []entity.ID
	for _, e := range fighters {
		e.Fighter.Delay.Tick(dt)
		if !e.Fighter.Delay.Finished() {
			continue
		}

		for _, child := range attackChildren(reg, e) {
			reg.Despawn(child)
		}

		if unlock && e.Fighter.MoveLock {
			e.Fighter.MoveLock = false
			if e.Animation == entity.AnimAttack {
				e.Animation = entity.AnimIdle
			}
			unlocked = append(unlocked, e.ID)
			l.logger.Debug("🔓 Блокировка снята с %s", e.ID)
		}
	}
	return unlocked
}

func attackChildren(reg *entity.Registry, e *entity.Entity) []entity.ID {
	var out []entity.ID
	for _, id := range e.Children {
		if c, ok := reg.Get(id); ok && c.Attack != nil {
			out = append(out, id)
		}
	}
	return out
}

// PhaseOf возвращает фазу удара сущности:
// Windup пока экземпляр ещё ни разу не разрешался, Active после первой
// пробы, Recovering когда экземпляра нет, а блокировка ещё стоит.
func PhaseOf(reg *entity.Registry, id entity.ID) Phase {
	e, ok := reg.Get(id)
	if !ok || e.Fighter == nil {
		return PhaseIdle
	}
	for _, child := range attackChildren(reg, e) {
		c, _ := reg.Get(child)
		if c.Attack.Resolved {
			return PhaseActive
		}
		return PhaseWindup
	}
	if e.Fighter.MoveLock {
		return PhaseRecovering
	}
	return PhaseIdle
}
