// Package game владеет всем изменяемым состоянием арены и выполняет
// системы в фиксированном порядке один раз за тик.
package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/tile-brawl/internal/ai"
	"github.com/annel0/tile-brawl/internal/combat"
	"github.com/annel0/tile-brawl/internal/config"
	"github.com/annel0/tile-brawl/internal/console"
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/eventbus"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/interaction"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/nav"
	"github.com/annel0/tile-brawl/internal/physics"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

// ErrBlockedCell ячейка непроходима
var ErrBlockedCell = errors.New("cell is blocked")

const (
	eventSource   = "game"
	commandBuffer = 64
)

// Deps внешние зависимости игры; любое поле может быть nil
type Deps struct {
	Asker      console.Asker
	Report     console.ReportFunc
	Bus        eventbus.EventBus
	Registerer prometheus.Registerer
}

// Game арена и её системы. Step вызывается только из одной горутины
// (обычно Run); другие горутины используют Enqueue и Snapshot.
type Game struct {
	cfg    *config.Config
	mapper grid.Mapper

	reg    *entity.Registry
	index  *world.EntityGridMap
	tiles  *world.TileGridMap
	states *interaction.StateMachine

	lifecycle   *combat.Lifecycle
	resolver    *combat.Resolver
	interaction *interaction.System
	navService  *nav.Service
	navSys      *nav.System
	brains      *ai.System
	console     *console.Console

	player  entity.ID
	heading *grid.Facing // направление, в котором игрок идёт до команды stop
	tick    uint64

	commands chan Command
	quit     chan struct{}
	quitOnce sync.Once

	outbox  *outbox
	metrics *Metrics
	logger  *logging.Logger

	snapMu    sync.RWMutex
	snap      *Snapshot
	tilesView TilesView
}

// New собирает арену из уровня: тайлы, игрок, NPC с консолями и навигация
func New(cfg *config.Config, lvl *world.Level, deps Deps) (*Game, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lvl == nil {
		return nil, errors.New("nil level")
	}
	policy, err := combat.ParseHitPolicy(cfg.Combat.HitPolicy)
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(deps.Registerer)
	if err != nil {
		return nil, fmt.Errorf("регистрация метрик: %w", err)
	}

	mapper := grid.NewMapper(cfg.Grid.CellSize, cfg.Grid.Offset)
	g := &Game{
		cfg:    cfg,
		mapper: mapper,
		reg:    entity.NewRegistry(),
		index:  world.NewEntityGridMap(),
		tiles:  world.NewTileGridMap(),
		states: interaction.NewStateMachine(interaction.MainGame),
		lifecycle: combat.NewLifecycle(combat.AttackSpec{
			Damage:        cfg.Combat.Damage,
			Pushback:      vec.Vec2Float{X: cfg.Combat.PushbackX, Y: cfg.Combat.PushbackY},
			Hitstun:       cfg.Combat.Hitstun,
			SwingDuration: cfg.Combat.SwingDuration,
		}),
		resolver:    combat.NewResolver(policy),
		interaction: interaction.NewSystem(),
		navService:  nav.NewService(mapper, cfg.Grid.UnitHalfExtent-0.01),
		brains:      ai.NewSystem(mapper, cfg.AI.ArriveDistance),
		commands:    make(chan Command, commandBuffer),
		quit:        make(chan struct{}),
		metrics:     metrics,
		logger:      logging.GetGameLogger(),
	}
	g.navSys = nav.NewSystem(g.navService, mapper)
	g.console = console.New(console.Options{
		PlayerName:    cfg.Level.PlayerName,
		MaxCommandLen: cfg.Console.MaxCommandLen,
		Speed:         cfg.Movement.Speed,
		AskTimeout:    cfg.Console.Timeout,
		Mapper:        mapper,
		Report:        deps.Report,
	}, deps.Asker)

	g.index.SetObserver(func(op world.IndexOp, _ vec.Vec2, _ entity.ID) {
		g.metrics.observeIndex(op)
	})
	world.Attach(g.reg, g.index)
	g.console.Attach(g.reg)
	g.brains.Attach(g.reg)

	lvl.Load(g.reg, g.tiles)
	if _, err := g.navService.Rebuild(g.tiles); err != nil {
		// без навигации NPC просто стоят на месте
		g.logger.Warn("⚠️ Уровень %q без навигации: %v", lvl.Name, err)
	}

	g.player = g.spawnPlayer(lvl.PlayerSpawn).ID
	for _, spawn := range lvl.NPCs {
		npc := g.spawnNPC(spawn)
		g.console.Register(npc.ID, spawn.Name)
	}

	world.UpdateCoordinates(g.reg, g.index, g.mapper)
	g.publish()

	if deps.Bus != nil {
		g.outbox = newOutbox(deps.Bus, cfg.EventBus.Buffer, metrics.eventsDrop.Inc, g.logger)
	}

	g.logger.Info("🗺️ Уровень %q загружен: %dx%d, тайлов %d, NPC %d",
		lvl.Name, g.tiles.Width(), g.tiles.Height(), g.tiles.Len(), len(lvl.NPCs))
	return g, nil
}

func (g *Game) unitBody(cell vec.Vec2) *physics.Body {
	half := g.cfg.Grid.UnitHalfExtent
	return physics.NewBody(g.mapper.CellCenter(cell), vec.Vec2Float{X: half, Y: half})
}

func (g *Game) spawnPlayer(cell vec.Vec2) *entity.Entity {
	p := g.reg.Spawn(entity.KindPlayer, g.cfg.Level.PlayerName)
	p.Visible = true
	p.Body = g.unitBody(cell)
	p.Coordinate = &entity.Coordinate{}
	p.Facing = &entity.Facing{Direction: grid.Down}
	p.Fighter = &entity.Fighter{}
	p.Interactor = &entity.Interactor{}
	return p
}

func (g *Game) spawnNPC(spawn world.NPCSpawn) *entity.Entity {
	npc := g.reg.Spawn(entity.KindNPC, spawn.Name)
	npc.Visible = true
	npc.Body = g.unitBody(spawn.Cell)
	npc.Coordinate = &entity.Coordinate{}
	npc.Facing = &entity.Facing{Direction: grid.Down}
	npc.Brain = &entity.Brain{
		Range: g.cfg.AI.Range,
		Speed: g.cfg.AI.ApproachSpeed,
	}
	return npc
}

// PlacePlayer переносит игрока в центр ячейки (восстановление сохранённой позиции).
// Вызывается до Run.
func (g *Game) PlacePlayer(cell vec.Vec2) error {
	if g.tiles.Solid(cell) {
		return fmt.Errorf("%w: %v", ErrBlockedCell, cell)
	}
	p, ok := g.reg.Get(g.player)
	if !ok || p.Body == nil {
		return entity.ErrNotFound
	}
	p.Nav = nil
	p.Body.Velocity = vec.Zero
	p.Body.Teleport(g.mapper.CellCenter(cell))
	world.UpdateCoordinates(g.reg, g.index, g.mapper)
	g.publish()
	return nil
}

// PlayerCell ячейка центра игрока. Вызывается из горутины цикла или после Run.
func (g *Game) PlayerCell() (vec.Vec2, bool) {
	p, ok := g.reg.Get(g.player)
	if !ok || p.Body == nil {
		return vec.Vec2{}, false
	}
	return g.mapper.CellOf(p.Body.Position), true
}

// Enqueue передаёт команду игроку в следующий тик. Не блокируется:
// при переполнении очереди команда отбрасывается и возвращается false.
func (g *Game) Enqueue(cmd Command) bool {
	if cmd.Kind == CmdQuit {
		g.quitOnce.Do(func() { close(g.quit) })
		return true
	}
	select {
	case g.commands <- cmd:
		return true
	default:
		g.logger.Warn("⚠️ Очередь команд переполнена, %s отброшена", cmd.Kind)
		return false
	}
}

// Done закрывается после команды quit
func (g *Game) Done() <-chan struct{} { return g.quit }

// Run выполняет тики с фиксированным шагом, пока не отменён ctx или не пришла команда quit
func (g *Game) Run(ctx context.Context) error {
	interval := g.cfg.Tick.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.logger.Info("▶️ Игровой цикл запущен: %d тиков/с", g.cfg.Tick.Rate)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.quit:
			g.logger.Info("⏹️ Игровой цикл остановлен командой quit на тике %d", g.tick)
			return nil
		case <-ticker.C:
			g.Advance()
		}
	}
}

// Advance выполняет следующий тик с шагом по накопленному времени
func (g *Game) Advance() {
	g.Step(g.cfg.Tick.Delta(g.tick + 1))
}

// Close отменяет незавершённые запросы консоли и дожидается публикации
// оставшихся событий. Вызывается после остановки Run.
func (g *Game) Close() {
	g.console.Close()
	if g.outbox != nil {
		g.outbox.close()
	}
}

// Step выполняет один тик
func (g *Game) Step(dt time.Duration) {
	start := time.Now()
	g.tick++

	// 1. ответы языковой модели
	g.console.Poll()

	// 2. ввод игрока
	in := g.drainInput()
	state := g.states.Current()
	var orders []nav.OrderMovementEvent
	if state == interaction.MainGame {
		orders = append(orders, g.applyPlayerInput(in)...)
	}

	// 3. взаимодействие с NPC и набор в консоли
	res := g.interaction.Update(g.reg, g.index, g.player, interaction.Input{
		Interact: in.interact,
		Close:    in.close,
		Pause:    in.pause,
	}, g.states)
	if !res.Opened.IsNil() {
		g.console.SetOpened(res.Opened, true)
	}
	if !res.Closed.IsNil() {
		g.console.SetOpened(res.Closed, false)
	}
	if state == interaction.ConsoleOpened {
		orders = append(orders, g.applyConsoleInput(in.edits)...)
	}

	// 4-5. ИИ, навигация и физика; пауза их замораживает
	if state != interaction.GamePaused {
		orders = append(orders, g.brains.Update(g.reg, g.index)...)
		accepted := g.navSys.Handle(g.reg, orders)
		g.metrics.observeNav(accepted, len(orders))
		g.navSys.Follow(g.reg, dt)
		g.stepPhysics(dt)
	}

	// 6. единственный писатель индекса
	world.UpdateCoordinates(g.reg, g.index, g.mapper)

	// 7. попадания читают индекс после обновления
	events, err := g.resolver.ResolveHits(g.reg, g.index)
	if err != nil {
		g.logger.Warn("⚠️ Тик %d: %v", g.tick, err)
	}
	combat.ApplyDamage(g.reg, events)

	// 8. восстановление после удара, разблокировка только в основной игре
	g.lifecycle.Recover(g.reg, dt, state == interaction.MainGame)

	// 9. смена состояния приложения и перестройка навигации
	tr, changed := g.states.Apply()
	if changed {
		interaction.OnTransition(g.reg, g.player, tr)
		if tr.From == interaction.MainGame {
			g.heading = nil
		}
		g.logger.Info("🔀 Состояние %s → %s", tr.From, tr.To)
	}
	if _, err := g.navService.Rebuild(g.tiles); err != nil {
		g.logger.Warn("⚠️ Навигация не перестроена: %v", err)
	}

	// 10. метрики, шина событий и снимок
	prints := g.console.TakePrinted()
	g.export(events, prints, tr, changed)
	g.metrics.damage.Add(float64(len(events)))
	g.metrics.consoleLines.Add(float64(len(prints)))
	g.publish()

	g.metrics.ticks.Inc()
	g.metrics.tickDuration.Observe(time.Since(start).Seconds())
}

func (g *Game) drainInput() *frameInput {
	in := &frameInput{}
	for {
		select {
		case cmd := <-g.commands:
			in.add(cmd)
		default:
			return in
		}
	}
}

// applyPlayerInput движение, удар и приказы goto в основной игре
func (g *Game) applyPlayerInput(in *frameInput) []nav.OrderMovementEvent {
	p, ok := g.reg.Get(g.player)
	if !ok || p.Body == nil {
		return nil
	}

	if in.stop {
		g.heading = nil
		p.Nav = nil
	}
	if in.move != nil {
		g.heading = in.move
		p.Nav = nil // ручное движение отменяет маршрут
	}
	if in.attack {
		g.lifecycle.Begin(g.reg, g.player)
	}

	locked := p.Fighter != nil && p.Fighter.MoveLock
	var orders []nav.OrderMovementEvent
	if !locked {
		for _, cell := range in.gotos {
			g.heading = nil
			orders = append(orders, nav.OrderMovementEvent{
				Mover:  g.player,
				Target: nav.StaticTarget(g.mapper.CellCenter(cell)),
				Speed:  g.cfg.Movement.Speed,
			})
		}
	}

	if p.Nav != nil || len(orders) > 0 {
		return orders
	}
	if locked || g.heading == nil {
		p.Body.Velocity = vec.Zero
		if p.Animation == entity.AnimWalk {
			p.Animation = entity.AnimIdle
		}
		return orders
	}
	p.Body.Velocity = vec.FromVec2(g.heading.Delta()).Mul(g.cfg.Movement.Speed)
	if p.Facing != nil {
		p.Facing.Direction = *g.heading
	}
	p.Animation = entity.AnimWalk
	return orders
}

// applyConsoleInput набор и отправка команды в открытой консоли
func (g *Game) applyConsoleInput(edits []Command) []nav.OrderMovementEvent {
	p, ok := g.reg.Get(g.player)
	if !ok || p.Interactor == nil || p.Interactor.CurrentNPC.IsNil() {
		return nil
	}
	npc := p.Interactor.CurrentNPC

	var orders []nav.OrderMovementEvent
	for _, e := range edits {
		switch e.Kind {
		case CmdType:
			g.console.Type(npc, e.Text)
		case CmdBackspace:
			g.console.Backspace(npc)
		case CmdEnter:
			orders = append(orders, g.console.Submit(npc)...)
		}
	}
	return orders
}

func (g *Game) stepPhysics(dt time.Duration) {
	g.reg.Each(func(e *entity.Entity) {
		if e.Body != nil {
			physics.Step(e.Body, dt, g.mapper, g.tiles.Solid)
		}
	})
}

// export ставит события тика в очередь шины; тик не ждёт публикации
func (g *Game) export(events []combat.DamageEvent, prints []console.PrintEvent, tr interaction.Transition, changed bool) {
	if g.outbox == nil {
		return
	}
	emit := func(eventType string, priority int, payload interface{}) {
		env, err := eventbus.NewTickEnvelope(eventSource, eventType, priority, g.tick, payload)
		if err != nil {
			g.logger.Warn("⚠️ Тик %d: %v", g.tick, err)
			return
		}
		g.outbox.offer(env)
	}

	for _, ev := range events {
		emit(eventbus.TypeDamage, 6, eventbus.DamagePayload{
			Tick:     g.tick,
			Attacker: ev.Attacker.String(),
			Target:   ev.Target.String(),
			Damage:   ev.Damage,
			VelX:     ev.Velocity.X,
			VelY:     ev.Velocity.Y,
		})
	}
	for _, pr := range prints {
		emit(eventbus.TypeConsolePrint, 3, eventbus.ConsolePrintPayload{
			Tick:    g.tick,
			NPC:     pr.NPC.String(),
			Message: pr.Message,
		})
	}
	if changed {
		emit(eventbus.TypeStateTransition, 7, eventbus.TransitionPayload{
			Tick: g.tick,
			From: tr.From.String(),
			To:   tr.To.String(),
		})
	}
}

// publish строит снимок на конец тика и обновляет метрики индекса
func (g *Game) publish() {
	snap := &Snapshot{
		Tick:   g.tick,
		State:  g.states.Current().String(),
		Player: g.player.String(),
		Index:  g.index.Stats(),
		cells:  g.index.Snapshot(),
	}

	counts := map[entity.Kind]int{}
	g.reg.Each(func(e *entity.Entity) {
		counts[e.Kind]++
		if e.Kind != entity.KindTile {
			snap.Entities = append(snap.Entities, viewOf(g.reg, e))
		}
	})
	for _, kind := range []entity.Kind{entity.KindPlayer, entity.KindNPC, entity.KindTile, entity.KindAttack} {
		g.metrics.entities.WithLabelValues(kind.String()).Set(float64(counts[kind]))
	}
	g.metrics.indexCells.Set(float64(snap.Index.Cells))
	g.metrics.indexEntries.Set(float64(snap.Index.Entries))

	if g.tilesView.Rows == nil || g.tilesView.Version != g.tiles.Version() {
		g.tilesView = renderTiles(g.tiles)
	}
	snap.Tiles = g.tilesView

	consoles := g.console.Snapshot()
	ids := make([]entity.ID, 0, len(consoles))
	for id := range consoles {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b entity.ID) int { return int(a.Index) - int(b.Index) })
	for _, id := range ids {
		d := consoles[id]
		snap.Consoles = append(snap.Consoles, ConsoleView{
			NPC:          id.String(),
			TypedCommand: d.TypedCommand,
			Messages:     d.Messages,
			Opened:       d.Opened,
		})
	}

	g.snapMu.Lock()
	g.snap = snap
	g.snapMu.Unlock()
}

// Snapshot последний опубликованный снимок; безопасен из любой горутины
func (g *Game) Snapshot() *Snapshot {
	g.snapMu.RLock()
	defer g.snapMu.RUnlock()
	return g.snap
}
