package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/tile-brawl/internal/eventbus"
)

const (
	defaultNATSURL = "nats://localhost:4222"
	timeFormat     = "15:04:05.000"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATSURL, "NATS server URL")
		stream     = flag.String("stream", "EVENTS", "JetStream stream name")
		prefix     = flag.String("prefix", "brawl", "Subject prefix of game events")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Event sources filter (comma-separated)")
		duration   = flag.Duration("for", 10*time.Second, "How long to collect events for stats")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
		URL:    *natsURL,
		Stream: *stream,
		Prefix: *prefix,
		Name:   "event-cli",
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{Types: parseStringList(*eventTypes), Sources: parseStringList(*sources)}

	switch *command {
	case "tail":
		fmt.Printf("🎬 Tailing events from %s %v\n", *stream, bus.Subjects().ForFilter(filter))
		if err := tail(ctx, bus, filter, os.Stdout); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		ctx, cancel := context.WithTimeout(ctx, *duration)
		defer cancel()
		counts, err := collect(ctx, bus, filter)
		if err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
		printStats(os.Stdout, counts)

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

// tail печатает события до отмены ctx
func tail(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, out io.Writer) error {
	var mu sync.Mutex
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, formatEvent(ev))
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}

// collect считает события по типам до отмены ctx
func collect(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter) (map[string]int, error) {
	var mu sync.Mutex
	counts := make(map[string]int)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		counts[ev.EventType]++
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	<-ctx.Done()
	sub.Unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	return counts, nil
}

// formatEvent одна строка на событие: время, тип, источник, краткое содержимое
func formatEvent(ev *eventbus.Envelope) string {
	prefix := fmt.Sprintf("[%s] %-16s %s", ev.Timestamp.Format(timeFormat), ev.EventType, ev.Source)

	switch ev.EventType {
	case eventbus.TypeDamage:
		var p eventbus.DamagePayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("%s ⚔️  tick=%d %s → %s dmg=%d", prefix, p.Tick, p.Attacker, p.Target, p.Damage)
		}
	case eventbus.TypeConsolePrint:
		var p eventbus.ConsolePrintPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("%s 💬 tick=%d %s: %s", prefix, p.Tick, p.NPC, firstLine(p.Message))
		}
	case eventbus.TypeStateTransition:
		var p eventbus.TransitionPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("%s 🔀 tick=%d %s → %s", prefix, p.Tick, p.From, p.To)
		}
	}
	return fmt.Sprintf("%s %s", prefix, ev.Payload)
}

func printStats(out io.Writer, counts map[string]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(out, "📊 Events: %d\n", total)
	for _, t := range []string{eventbus.TypeDamage, eventbus.TypeConsolePrint, eventbus.TypeStateTransition} {
		fmt.Fprintf(out, "   %-18s %d\n", t, counts[t])
		delete(counts, t)
	}
	for t, n := range counts {
		fmt.Fprintf(out, "   %-18s %d\n", t, n)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
