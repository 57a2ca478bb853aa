package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/annel0/tile-brawl/internal/logging"
)

// Заголовки сообщений JetStream
const (
	HeaderPriority = "Brawl-Priority"
	HeaderTick     = "Brawl-Tick"
)

// JetStreamConfig параметры шины поверх NATS JetStream
type JetStreamConfig struct {
	URL       string        // nats://127.0.0.1:4222
	Stream    string        // EVENTS
	Prefix    string        // первый токен subject, по умолчанию brawl
	Retention time.Duration // MaxAge стрима
	Name      string        // имя соединения для мониторинга NATS
}

func (c *JetStreamConfig) withDefaults() {
	if c.Stream == "" {
		c.Stream = "EVENTS"
	}
	if c.Prefix == "" {
		c.Prefix = "brawl"
	}
	if c.Retention <= 0 {
		c.Retention = 24 * time.Hour
	}
	if c.Name == "" {
		c.Name = "tile-brawl"
	}
}

// Subjects раскладывает события по subject вида <prefix>.<domain>.<action>.<source>,
// например brawl.combat.damage.game.
type Subjects struct {
	Prefix string
}

// For возвращает subject конкретного события
func (s Subjects) For(ev *Envelope) string {
	return s.Prefix + "." + typeTokens(ev.EventType) + "." + token(ev.Source)
}

// All subject, покрывающий весь стрим
func (s Subjects) All() string { return s.Prefix + ".>" }

// ForFilter переводит фильтр в набор subject для подписки. Типы не из двух
// токенов сужаются только на стороне клиента, поэтому для них возвращается All.
func (s Subjects) ForFilter(f Filter) []string {
	types := f.Types
	if len(types) == 0 {
		types = []string{"*.*"}
	}
	sources := f.Sources
	if len(sources) == 0 {
		sources = []string{"*"}
	}

	var out []string
	for _, t := range types {
		if strings.Count(t, ".") != 1 {
			return []string{s.All()}
		}
		if t != "*.*" {
			t = typeTokens(t)
		}
		for _, src := range sources {
			if src != "*" {
				src = token(src)
			}
			out = append(out, s.Prefix+"."+t+"."+src)
		}
	}
	return out
}

// typeTokens нормализует тип события до двух токенов domain.action
func typeTokens(eventType string) string {
	parts := strings.SplitN(eventType, ".", 2)
	if len(parts) < 2 {
		return token(eventType) + ".event"
	}
	return token(parts[0]) + "." + token(strings.ReplaceAll(parts[1], ".", "_"))
}

// token убирает из строки символы, недопустимые в токене subject
func token(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, s)
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	cfg       JetStreamConfig
	subjects  Subjects
	logger    *logging.Logger
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
func NewJetStreamBus(cfg JetStreamConfig) (*JetStreamBus, error) {
	cfg.withDefaults()
	logger := logging.GetComponentLogger("eventbus")

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("📡 NATS отключён: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("📡 NATS переподключён к %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	jb := &JetStreamBus{nc: nc, js: js, cfg: cfg, subjects: Subjects{Prefix: cfg.Prefix}, logger: logger}
	if err := jb.ensureStream(); err != nil {
		nc.Drain()
		return nil, err
	}
	logger.Info("📡 JetStream: стрим %s, subject %s", cfg.Stream, jb.subjects.All())
	return jb, nil
}

func (jb *JetStreamBus) ensureStream() error {
	sc := &nats.StreamConfig{
		Name:       jb.cfg.Stream,
		Subjects:   []string{jb.subjects.All()},
		Retention:  nats.LimitsPolicy,
		MaxAge:     jb.cfg.Retention,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	}
	if _, err := jb.js.StreamInfo(jb.cfg.Stream); err != nil {
		if _, err := jb.js.AddStream(sc); err != nil {
			return fmt.Errorf("add stream: %w", err)
		}
		return nil
	}
	if _, err := jb.js.UpdateStream(sc); err != nil {
		return fmt.Errorf("update stream: %w", err)
	}
	return nil
}

// Subjects возвращает раскладку subject этой шины
func (jb *JetStreamBus) Subjects() Subjects { return jb.subjects }

// Publish сериализует Envelope в JSON; ID конверта служит ключом дедупликации.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	msg, err := encodeMsg(jb.subjects, ev)
	if err != nil {
		return err
	}
	if _, err := jb.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// encodeMsg строит сообщение с заголовками приоритета, тика и дедупликации
func encodeMsg(s Subjects, ev *Envelope) (*nats.Msg, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(s.For(ev))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	msg.Header.Set(HeaderPriority, strconv.Itoa(ev.Priority))
	if tick, ok := ev.Metadata["tick"]; ok {
		msg.Header.Set(HeaderTick, tick)
	}
	return msg, nil
}

// Close дожидается отправки и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}

// Subscribe создаёт эфемерных потребителей на новые события, по одному на
// subject фильтра, и вызывает handler асинхронно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	handler := func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}

	var subs jetSubs
	for _, subj := range jb.subjects.ForFilter(f) {
		s, err := jb.js.Subscribe(subj, handler, nats.ManualAck(), nats.DeliverNew(), nats.AckWait(30*time.Second))
		if err != nil {
			subs.Unsubscribe()
			return nil, fmt.Errorf("subscribe %s: %w", subj, err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// jetSubs объединяет подписки на несколько subject
type jetSubs []*nats.Subscription

func (j jetSubs) Unsubscribe() {
	for _, s := range j {
		_ = s.Unsubscribe()
	}
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
	}
}
