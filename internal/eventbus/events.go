package eventbus

import (
	"context"
	"strconv"
)

// Типы игровых событий
const (
	TypeDamage          = "combat.damage"
	TypeConsolePrint    = "console.print"
	TypeStateTransition = "state.transition"
)

// DamagePayload урон, нанесённый за тик
type DamagePayload struct {
	Tick     uint64  `json:"tick"`
	Attacker string  `json:"attacker"`
	Target   string  `json:"target"`
	Damage   int     `json:"damage"`
	VelX     float64 `json:"vel_x"`
	VelY     float64 `json:"vel_y"`
}

// ConsolePrintPayload строка, появившаяся в консоли NPC
type ConsolePrintPayload struct {
	Tick    uint64 `json:"tick"`
	NPC     string `json:"npc"`
	Message string `json:"message"`
}

// TransitionPayload смена состояния приложения
type TransitionPayload struct {
	Tick uint64 `json:"tick"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Emit оборачивает payload в конверт и публикует его
func Emit(ctx context.Context, bus EventBus, source, eventType string, priority int, payload interface{}) error {
	if bus == nil {
		return nil
	}
	env, err := NewEnvelope(source, eventType, priority, payload)
	if err != nil {
		return err
	}
	return bus.Publish(ctx, env)
}

// NewTickEnvelope создаёт конверт события тика; номер тика попадает в метаданные
func NewTickEnvelope(source, eventType string, priority int, tick uint64, payload interface{}) (*Envelope, error) {
	env, err := NewEnvelope(source, eventType, priority, payload)
	if err != nil {
		return nil, err
	}
	env.Metadata = map[string]string{"tick": strconv.FormatUint(tick, 10)}
	return env, nil
}
