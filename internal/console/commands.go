package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/nav"
	"github.com/annel0/tile-brawl/internal/vec"
)

const helpText = "\nSHOWING AVAILABLE COMMANDS\n" +
	"==========================\n\n" +
	"- help : Displays this message\n" +
	"- clear : Clears commands on the screen\n" +
	"- motd : Prints informations about YOUR computer\n" +
	"- ask <questions> : ask some questions to chatGPT\n" +
	"-go <(x,y)>: order npc to move to (x, y) position"

// Execute выполняет команду в консоли NPC. Введённая строка повторяется
// в выводе с префиксом "> ", кроме clear. Возвращает приказы на движение.
func (c *Console) Execute(npc entity.ID, cmd string) []nav.OrderMovementEvent {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return nil
	}
	if !c.registered(npc) {
		return nil
	}

	args := strings.Fields(cmd)
	if args[0] != "clear" {
		c.print(npc, "> "+cmd)
	}

	switch args[0] {
	case "clear":
		c.clear(npc)
	case "help":
		c.print(npc, helpText)
	case "motd":
		c.print(npc, c.motd(c.name(npc)))
	case "ask":
		if len(args) < 2 {
			c.print(npc, "Please specify a question")
			return nil
		}
		c.print(npc, "Waiting for chatGPT response...")
		c.ask(npc, strings.Join(args[1:], " "))
	case "go":
		return c.goTo(npc, args)
	default:
		c.print(npc, fmt.Sprintf("I didn't understand the command: %q", args[0]))
	}
	return nil
}

func (c *Console) goTo(npc entity.ID, args []string) []nav.OrderMovementEvent {
	if len(args) != 2 {
		c.print(npc, "Please type command as 'go (x,y)'")
		return nil
	}

	cell, ok := parseCell(args[1])
	if !ok {
		c.print(npc, "Please type correct coordination.")
		return nil
	}

	c.print(npc, fmt.Sprintf("%s will be move to (%d, %d)", c.name(npc), cell.X, cell.Y))
	return []nav.OrderMovementEvent{{
		Mover:  npc,
		Target: nav.StaticTarget(c.opts.Mapper.CellCenter(cell)),
		Speed:  c.opts.Speed,
	}}
}

// parseCell разбирает "(x,y)"; скобки необязательны
func parseCell(s string) (vec.Vec2, bool) {
	parts := strings.Split(strings.Trim(s, "()"), ",")
	if len(parts) != 2 {
		return vec.Vec2{}, false
	}
	x, errX := strconv.Atoi(parts[0])
	y, errY := strconv.Atoi(parts[1])
	if errX != nil || errY != nil {
		return vec.Vec2{}, false
	}
	return vec.Vec2{X: x, Y: y}, true
}

// ask отправляет вопрос в фоне; ответ заберёт Poll
func (c *Console) ask(npc entity.ID, question string) {
	if c.asker == nil {
		c.print(npc, "Language model is not configured")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.opts.AskTimeout)
		defer cancel()

		text, err := c.asker.Ask(ctx, question)
		select {
		case c.answers <- answer{npc: npc, text: text, err: err}:
		case <-c.ctx.Done():
		}
	}()
}
