package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tile-brawl/internal/eventbus"
)

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"combat.damage", "console.print"}, parseStringList(" combat.damage, ,console.print "))
}

func TestFormatEvent(t *testing.T) {
	ev, err := eventbus.NewEnvelope("tile-brawl", eventbus.TypeDamage, 6,
		eventbus.DamagePayload{Tick: 7, Attacker: "player", Target: "npc-1", Damage: 1})
	require.NoError(t, err)
	line := formatEvent(ev)
	assert.Contains(t, line, "tick=7 player → npc-1 dmg=1")

	ev, err = eventbus.NewEnvelope("tile-brawl", eventbus.TypeConsolePrint, 3,
		eventbus.ConsolePrintPayload{Tick: 2, NPC: "npc-1", Message: "привет\nвторая строка"})
	require.NoError(t, err)
	line = formatEvent(ev)
	assert.Contains(t, line, "npc-1: привет …")
	assert.NotContains(t, line, "вторая")

	ev, err = eventbus.NewEnvelope("tile-brawl", "custom.event", 0, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Contains(t, formatEvent(ev), `{"n":1}`)
}

func TestTailAndCollect(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- tail(ctx, bus, eventbus.Filter{Types: []string{eventbus.TypeStateTransition}}, &out) }()

	// Даём подписке зарегистрироваться
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, eventbus.Emit(context.Background(), bus, "tile-brawl", eventbus.TypeStateTransition, 7,
		eventbus.TransitionPayload{Tick: 1, From: "MainGame", To: "GamePaused"}))
	require.NoError(t, eventbus.Emit(context.Background(), bus, "tile-brawl", eventbus.TypeDamage, 6,
		eventbus.DamagePayload{Tick: 1}))
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	text := out.String()
	assert.Contains(t, text, "MainGame → GamePaused")
	assert.NotContains(t, text, eventbus.TypeDamage)
	assert.Equal(t, 1, strings.Count(text, "\n"))
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	printStats(&out, map[string]int{eventbus.TypeDamage: 2, "custom": 1})
	text := out.String()
	assert.Contains(t, text, "📊 Events: 3")
	assert.Contains(t, text, "custom")
}
