package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/tile-brawl/internal/game"
)

const usage = `Команды: w/a/s/d, stop, attack, interact, close, pause,
          type <текст>, backspace, enter, goto <x> <y>, quit`

// Enqueuer принимает команды игрока
type Enqueuer interface {
	Enqueue(cmd game.Command) bool
}

// readInput построчно разбирает r и передаёт команды в игру до EOF или отмены ctx.
// EOF равносилен quit.
func readInput(ctx context.Context, r io.Reader, out io.Writer, g Enqueuer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		cmd, err := game.ParseCommand(line)
		if err != nil {
			if errors.Is(err, game.ErrUnknownCommand) {
				fmt.Fprintln(out, usage)
			} else {
				fmt.Fprintf(out, "❌ %v\n", err)
			}
			continue
		}
		g.Enqueue(cmd)
		if cmd.Kind == game.CmdQuit {
			return nil
		}
	}
	g.Enqueue(game.Command{Kind: game.CmdQuit})
	return scanner.Err()
}
