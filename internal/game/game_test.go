package game

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tile-brawl/internal/config"
	"github.com/annel0/tile-brawl/internal/console"
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/eventbus"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/interaction"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

const room = `---
name: room
npcs: [Bob]
---
#######
#.....#
#.P...#
#.N...#
#.....#
#######
`

const dt = 100 * time.Millisecond

func fakeReport() console.Report {
	return console.Report{SystemName: "Linux", HostName: "box", Processors: 1, TotalMemory: 1024}
}

type harness struct {
	g   *Game
	reg *prometheus.Registry
	bus eventbus.EventBus
}

// newHarness создаёт игру без ИИ-преследования (радиус 0)
func newHarness(t *testing.T, layout string) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.AI.Range = 0
	lvl, err := world.ParseLayout([]byte(layout))
	require.NoError(t, err)

	h := &harness{reg: prometheus.NewRegistry(), bus: eventbus.NewMemoryBus(64)}
	h.g, err = New(cfg, lvl, Deps{Report: fakeReport, Bus: h.bus, Registerer: h.reg})
	require.NoError(t, err)
	t.Cleanup(func() {
		h.g.Close()
		_ = h.bus.Close()
	})
	return h
}

func (h *harness) steps(n int) {
	for i := 0; i < n; i++ {
		h.g.Step(dt)
	}
}

func (h *harness) player(t *testing.T) *entity.Entity {
	t.Helper()
	p, ok := h.g.reg.Get(h.g.player)
	require.True(t, ok)
	return p
}

func (h *harness) npc(t *testing.T) *entity.Entity {
	t.Helper()
	npc, ok := h.g.reg.FindByName("Bob")
	require.True(t, ok)
	return npc
}

func (h *harness) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		cmd, err := ParseCommand(line)
		require.NoError(t, err, line)
		require.True(t, h.g.Enqueue(cmd))
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"w", Command{Kind: CmdMove, Facing: grid.Up}},
		{"  D ", Command{Kind: CmdMove, Facing: grid.Right}},
		{"left", Command{Kind: CmdMove, Facing: grid.Left}},
		{"stop", Command{Kind: CmdStop}},
		{"attack", Command{Kind: CmdAttack}},
		{"type ask  why?", Command{Kind: CmdType, Text: "ask  why?"}},
		{"goto 3 -2", Command{Kind: CmdGoto, Cell: vec.Vec2{X: 3, Y: -2}}},
		{"quit", Command{Kind: CmdQuit}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "jump", "goto 1", "goto x y"} {
		_, err := ParseCommand(bad)
		assert.Error(t, err, bad)
	}
	_, err := ParseCommand("fly")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestNew_SpawnsLevel(t *testing.T) {
	h := newHarness(t, room)
	snap := h.g.Snapshot()
	require.NotNil(t, snap)

	assert.Equal(t, "main_game", snap.State)
	assert.Equal(t, 7, snap.Tiles.Width)
	assert.Equal(t, 6, snap.Tiles.Height)
	assert.Equal(t, "#.....#", snap.Tiles.Rows[2], "под игроком пол")

	player, ok := snap.Entity(snap.Player)
	require.True(t, ok)
	assert.Equal(t, "player", player.Kind)
	assert.Equal(t, &grid.BoundingBox{MinX: 2, MinY: 3, MaxX: 2, MaxY: 3}, player.Box)
	assert.Equal(t, []string{snap.Player}, snap.CellEntities(vec.Vec2{X: 2, Y: 3}))

	require.Len(t, snap.Consoles, 1)
	require.Len(t, snap.Consoles[0].Messages, 1, "приветствие при регистрации")
	assert.Contains(t, snap.Consoles[0].Messages[0], "Welcome to Bob's Console")
}

func TestGame_PlayerWalksUntilStop(t *testing.T) {
	h := newHarness(t, room)
	start := h.player(t).Body.Position

	h.send(t, "d")
	h.steps(3)
	p := h.player(t)
	assert.InDelta(t, start.X+30, p.Body.Position.X, 1e-9)
	assert.Equal(t, grid.Right, p.Facing.Direction)
	assert.Equal(t, entity.AnimWalk, p.Animation)

	h.send(t, "stop")
	h.steps(2)
	assert.True(t, p.Body.Velocity.IsZero())
	assert.Equal(t, entity.AnimIdle, p.Animation)
	assert.InDelta(t, start.X+30, p.Body.Position.X, 1e-9)
}

func TestGame_WallsStopThePlayer(t *testing.T) {
	h := newHarness(t, room)
	h.send(t, "a")
	h.steps(20)

	cell, ok := h.g.PlayerCell()
	require.True(t, ok)
	assert.Equal(t, vec.Vec2{X: 1, Y: 3}, cell)
}

func TestGame_AttackLockReleasedAfterDelay(t *testing.T) {
	h := newHarness(t, room)
	p := h.player(t)

	h.send(t, "attack", "d")
	h.g.Step(dt)
	require.True(t, p.Fighter.MoveLock)
	assert.True(t, p.Body.Velocity.IsZero(), "заблокированный игрок не ходит")
	assert.Len(t, p.Children, 1, "экземпляр удара создан")

	// задержка 1с: при шаге 100мс блокировка снимается ровно на десятом тике
	h.steps(8)
	assert.True(t, p.Fighter.MoveLock)
	h.g.Step(dt)
	assert.False(t, p.Fighter.MoveLock)
	assert.Empty(t, p.Children, "экземпляр удара удалён")

	// направление сохранилось, игрок снова идёт
	h.g.Step(dt)
	assert.False(t, p.Body.Velocity.IsZero())
}

func TestGame_AttackLockReleasedOnSixtiethTick(t *testing.T) {
	h := newHarness(t, room)
	p := h.player(t)

	h.send(t, "attack")
	h.g.Advance()
	require.True(t, p.Fighter.MoveLock)

	// шаги тиков складываются в ровно одну секунду на 60-м тике
	for h.g.tick < 59 {
		h.g.Advance()
		require.True(t, p.Fighter.MoveLock, "тик %d", h.g.tick)
	}
	h.g.Advance()
	assert.Equal(t, uint64(60), h.g.tick)
	assert.False(t, p.Fighter.MoveLock)
	assert.Empty(t, p.Children)
}

func TestGame_MeleeDamagesNPC(t *testing.T) {
	h := newHarness(t, room)
	got := make(chan eventbus.DamagePayload, 8)
	_, err := h.bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeDamage}},
		func(_ context.Context, ev *eventbus.Envelope) {
			var p eventbus.DamagePayload
			if ev.Decode(&p) == nil {
				got <- p
			}
		})
	require.NoError(t, err)

	npc := h.npc(t)
	h.send(t, "attack")
	h.g.Step(dt)

	assert.False(t, npc.Visible)
	assert.Equal(t, entity.AnimBeHit, npc.Animation)
	assert.Equal(t, 1.0, counterValue(t, h.reg, "tile_brawl_damage_events_total"))

	select {
	case p := <-got:
		assert.Equal(t, npc.ID.String(), p.Target)
		assert.Equal(t, h.g.player.String(), p.Attacker)
		assert.Equal(t, uint64(1), p.Tick)
	case <-time.After(time.Second):
		t.Fatal("событие урона не опубликовано")
	}
}

func TestGame_ConsoleGoMovesNPC(t *testing.T) {
	h := newHarness(t, room)
	npc := h.npc(t)

	h.send(t, "interact")
	h.g.Step(dt)
	assert.Equal(t, interaction.ConsoleOpened, h.g.states.Current())
	assert.True(t, h.player(t).Fighter.MoveLock, "открытая консоль блокирует движение")

	h.send(t, "type go (5,3)", "enter")
	h.steps(30)

	assert.Equal(t, h.g.mapper.CellCenter(vec.Vec2{X: 5, Y: 3}), npc.Body.Position)
	data := h.g.Snapshot().Consoles[0]
	assert.True(t, data.Opened)
	assert.Contains(t, data.Messages, "> go (5,3)")
	assert.Contains(t, data.Messages, "Bob will be move to (5, 3)")

	h.send(t, "close")
	h.g.Step(dt)
	assert.Equal(t, interaction.MainGame, h.g.states.Current())
	h.g.Step(dt)
	assert.False(t, h.player(t).Fighter.MoveLock)
	assert.False(t, h.g.Snapshot().Consoles[0].Opened)
}

func TestGame_TypingIgnoredOutsideConsole(t *testing.T) {
	h := newHarness(t, room)
	h.send(t, "type help", "enter")
	h.g.Step(dt)
	assert.Len(t, h.g.Snapshot().Consoles[0].Messages, 1)
}

func TestGame_PauseFreezesWorld(t *testing.T) {
	h := newHarness(t, room)
	h.send(t, "d", "pause")
	h.g.Step(dt)
	require.Equal(t, interaction.GamePaused, h.g.states.Current())

	pos := h.player(t).Body.Position
	h.steps(5)
	assert.Equal(t, pos, h.player(t).Body.Position)

	h.send(t, "pause")
	h.g.Step(dt)
	assert.Equal(t, interaction.MainGame, h.g.states.Current())
}

func TestGame_PlayerGoto(t *testing.T) {
	h := newHarness(t, room)
	h.send(t, "goto 5 1")
	h.steps(30)

	cell, _ := h.g.PlayerCell()
	assert.Equal(t, vec.Vec2{X: 5, Y: 1}, cell)
	assert.Nil(t, h.player(t).Nav)
	assert.Equal(t, 1.0, counterValue(t, h.reg, "tile_brawl_nav_orders_total"))
}

func TestGame_PlacePlayer(t *testing.T) {
	h := newHarness(t, room)

	assert.ErrorIs(t, h.g.PlacePlayer(vec.Vec2{X: 0, Y: 0}), ErrBlockedCell)
	assert.ErrorIs(t, h.g.PlacePlayer(vec.Vec2{X: 40, Y: 40}), ErrBlockedCell, "отсутствующая ячейка считается стеной")

	require.NoError(t, h.g.PlacePlayer(vec.Vec2{X: 4, Y: 4}))
	cell, ok := h.g.PlayerCell()
	require.True(t, ok)
	assert.Equal(t, vec.Vec2{X: 4, Y: 4}, cell)

	snap := h.g.Snapshot()
	assert.Equal(t, []string{snap.Player}, snap.CellEntities(vec.Vec2{X: 4, Y: 4}))
	assert.Empty(t, snap.CellEntities(vec.Vec2{X: 2, Y: 3}))
}

func TestGame_NPCApproachesPlayer(t *testing.T) {
	cfg := config.Default()
	lvl, err := world.ParseLayout([]byte(`---
npcs: [Eve]
---
########
#P.....#
#..N...#
########
`))
	require.NoError(t, err)
	g, err := New(cfg, lvl, Deps{Report: fakeReport, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	defer g.Close()

	for i := 0; i < 40; i++ {
		g.Step(dt)
	}

	eve, _ := g.reg.FindByName("Eve")
	p, _ := g.reg.Get(g.player)
	assert.LessOrEqual(t, eve.Body.Position.DistanceTo(p.Body.Position), cfg.AI.ArriveDistance+1e-9)
	view, ok := g.Snapshot().Entity(eve.ID.String())
	require.True(t, ok)
	assert.Equal(t, p.ID.String(), view.Target)
}

func TestGame_RunStopsOnQuit(t *testing.T) {
	h := newHarness(t, room)
	h.g.cfg.Tick.Rate = 200

	done := make(chan error, 1)
	go func() { done <- h.g.Run(context.Background()) }()

	require.Eventually(t, func() bool { return h.g.Snapshot().Tick > 2 }, time.Second, 5*time.Millisecond)
	h.g.Enqueue(Command{Kind: CmdQuit})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("цикл не остановился")
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	lvl, err := world.ParseLayout([]byte(room))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Combat.HitPolicy = "sometimes"
	_, err = New(cfg, lvl, Deps{Registerer: prometheus.NewRegistry()})
	assert.Error(t, err)

	_, err = New(config.Default(), nil, Deps{Registerer: prometheus.NewRegistry()})
	assert.Error(t, err)
}
