// Package console реализует консоль NPC: набор команды, вывод сообщений,
// команды help/clear/motd/ask/go и асинхронные ответы языковой модели.
package console

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/nav"
)

// DefaultMaxCommandLen предел длины набираемой команды
const DefaultMaxCommandLen = 144

// Data состояние консоли одного NPC
type Data struct {
	TypedCommand string
	Messages     []string
	Opened       bool

	name string
}

// PrintEvent строка, выведенная в консоль NPC
type PrintEvent struct {
	NPC     entity.ID
	Message string
}

// Options параметры консоли
type Options struct {
	PlayerName    string
	MaxCommandLen int
	Speed         float64       // скорость для приказов go
	AskTimeout    time.Duration // предел ожидания ответа модели
	Mapper        grid.Mapper
	Report        ReportFunc // источник сведений для motd
}

type answer struct {
	npc  entity.ID
	text string
	err  error
}

// Console хранит консоли всех NPC. Методы, кроме Snapshot, вызываются из
// игрового цикла; ответы модели приходят через канал и забираются Poll.
type Console struct {
	mu   sync.RWMutex
	data map[entity.ID]*Data

	opts    Options
	asker   Asker
	answers chan answer
	printed []PrintEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *logging.Logger
}

// New создаёт консоль. asker может быть nil: тогда ask сообщает, что модель не настроена.
func New(opts Options, asker Asker) *Console {
	if opts.MaxCommandLen <= 0 {
		opts.MaxCommandLen = DefaultMaxCommandLen
	}
	if opts.Speed <= 0 {
		opts.Speed = 100
	}
	if opts.AskTimeout <= 0 {
		opts.AskTimeout = 30 * time.Second
	}
	if opts.Mapper.CellSize <= 0 {
		opts.Mapper = grid.DefaultMapper()
	}
	if opts.Report == nil {
		opts.Report = HostReport
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Console{
		data:    make(map[entity.ID]*Data),
		opts:    opts,
		asker:   asker,
		answers: make(chan answer, 16),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logging.GetConsoleLogger(),
	}
}

// Attach удаляет консоль при исчезновении NPC
func (c *Console) Attach(reg *entity.Registry) {
	reg.OnDespawn(func(e *entity.Entity) {
		c.Unregister(e.ID)
	})
}

// Register заводит консоль NPC и печатает приветствие
func (c *Console) Register(npc entity.ID, name string) {
	c.mu.Lock()
	c.data[npc] = &Data{name: name}
	c.mu.Unlock()

	c.print(npc, c.motd(name))
}

// Unregister удаляет консоль NPC
func (c *Console) Unregister(npc entity.ID) {
	c.mu.Lock()
	delete(c.data, npc)
	c.mu.Unlock()
}

// Data возвращает копию состояния консоли NPC
func (c *Console) Data(npc entity.ID) (Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.data[npc]
	if !ok {
		return Data{}, false
	}
	out := *d
	out.Messages = append([]string(nil), d.Messages...)
	return out, true
}

// Snapshot копии всех консолей для читателей вне игрового цикла
func (c *Console) Snapshot() map[entity.ID]Data {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[entity.ID]Data, len(c.data))
	for id, d := range c.data {
		cp := *d
		cp.Messages = append([]string(nil), d.Messages...)
		out[id] = cp
	}
	return out
}

// SetOpened отмечает консоль открытой или закрытой
func (c *Console) SetOpened(npc entity.ID, opened bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.data[npc]; ok {
		d.Opened = opened
	}
}

// Type дописывает текст в набираемую команду, обрезая её до предела
func (c *Console) Type(npc entity.ID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[npc]
	if !ok {
		return
	}
	cmd := []rune(d.TypedCommand + text)
	if len(cmd) > c.opts.MaxCommandLen {
		cmd = cmd[:c.opts.MaxCommandLen]
	}
	d.TypedCommand = string(cmd)
}

// Backspace стирает последний символ набранной команды
func (c *Console) Backspace(npc entity.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[npc]
	if !ok || d.TypedCommand == "" {
		return
	}
	cmd := []rune(d.TypedCommand)
	d.TypedCommand = string(cmd[:len(cmd)-1])
}

// Submit выполняет набранную команду и очищает строку ввода
func (c *Console) Submit(npc entity.ID) []nav.OrderMovementEvent {
	c.mu.Lock()
	d, ok := c.data[npc]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	cmd := d.TypedCommand
	d.TypedCommand = ""
	c.mu.Unlock()

	return c.Execute(npc, cmd)
}

// Poll забирает готовые ответы модели, не блокируясь
func (c *Console) Poll() int {
	n := 0
	for {
		select {
		case a := <-c.answers:
			n++
			if a.err != nil {
				c.logger.Warn("⚠️ Запрос к модели для %s не удался: %v", a.npc, a.err)
				c.print(a.npc, "Failed to receive message from chatGPT")
				continue
			}
			c.print(a.npc, a.text)
		default:
			return n
		}
	}
}

// TakePrinted возвращает строки, выведенные с прошлого вызова
func (c *Console) TakePrinted() []PrintEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.printed
	c.printed = nil
	return out
}

// Close отменяет незавершённые запросы и ждёт их горутины
func (c *Console) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Console) print(npc entity.ID, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[npc]
	if !ok {
		return
	}
	d.Messages = append(d.Messages, msg)
	c.printed = append(c.printed, PrintEvent{NPC: npc, Message: msg})
}

func (c *Console) clear(npc entity.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.data[npc]; ok {
		d.Messages = nil
	}
}

func (c *Console) registered(npc entity.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[npc]
	return ok
}

func (c *Console) name(npc entity.ID) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.data[npc]; ok {
		return d.name
	}
	return ""
}
