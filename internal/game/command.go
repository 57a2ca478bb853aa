package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
)

// ErrUnknownCommand строка ввода не распознана
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind вид команды игрока
type CommandKind uint8

const (
	CmdMove CommandKind = iota + 1
	CmdStop
	CmdAttack
	CmdInteract
	CmdClose
	CmdPause
	CmdType
	CmdBackspace
	CmdEnter
	CmdGoto
	CmdQuit
)

func (k CommandKind) String() string {
	switch k {
	case CmdMove:
		return "move"
	case CmdStop:
		return "stop"
	case CmdAttack:
		return "attack"
	case CmdInteract:
		return "interact"
	case CmdClose:
		return "close"
	case CmdPause:
		return "pause"
	case CmdType:
		return "type"
	case CmdBackspace:
		return "backspace"
	case CmdEnter:
		return "enter"
	case CmdGoto:
		return "goto"
	case CmdQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Command одна команда игрока; поля заполнены в зависимости от Kind
type Command struct {
	Kind   CommandKind
	Facing grid.Facing // CmdMove
	Text   string      // CmdType
	Cell   vec.Vec2    // CmdGoto
}

// ParseCommand разбирает строку ввода:
//
//	w a s d | up down left right    идти в направлении
//	stop                            остановиться
//	attack | interact | close | pause
//	type <текст>                    набрать текст в открытой консоли
//	backspace | enter
//	goto <x> <y>                    идти к ячейке
//	quit
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("%w: пустая строка", ErrUnknownCommand)
	}
	head, rest, _ := strings.Cut(line, " ")
	head = strings.ToLower(head)

	switch head {
	case "w", "up":
		return Command{Kind: CmdMove, Facing: grid.Up}, nil
	case "s", "down":
		return Command{Kind: CmdMove, Facing: grid.Down}, nil
	case "a", "left":
		return Command{Kind: CmdMove, Facing: grid.Left}, nil
	case "d", "right":
		return Command{Kind: CmdMove, Facing: grid.Right}, nil
	case "stop":
		return Command{Kind: CmdStop}, nil
	case "attack":
		return Command{Kind: CmdAttack}, nil
	case "interact", "e":
		return Command{Kind: CmdInteract}, nil
	case "close", "esc":
		return Command{Kind: CmdClose}, nil
	case "pause":
		return Command{Kind: CmdPause}, nil
	case "type":
		// пробелы внутри текста значимы, обрезаем только разделитель
		return Command{Kind: CmdType, Text: rest}, nil
	case "backspace":
		return Command{Kind: CmdBackspace}, nil
	case "enter":
		return Command{Kind: CmdEnter}, nil
	case "goto":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("goto: ожидается два числа, получено %q", rest)
		}
		x, errX := strconv.Atoi(fields[0])
		y, errY := strconv.Atoi(fields[1])
		if errX != nil || errY != nil {
			return Command{}, fmt.Errorf("goto: неверные координаты %q", rest)
		}
		return Command{Kind: CmdGoto, Cell: vec.Vec2{X: x, Y: y}}, nil
	case "quit", "exit":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, head)
}

// frameInput команды, накопленные к началу тика
type frameInput struct {
	move     *grid.Facing
	stop     bool
	attack   bool
	interact bool
	close    bool
	pause    bool
	edits    []Command // type, backspace и enter в порядке поступления
	gotos    []vec.Vec2
}

func (in *frameInput) add(cmd Command) {
	switch cmd.Kind {
	case CmdMove:
		f := cmd.Facing
		in.move = &f
		in.stop = false
	case CmdStop:
		in.move = nil
		in.stop = true
	case CmdAttack:
		in.attack = true
	case CmdInteract:
		in.interact = true
	case CmdClose:
		in.close = true
	case CmdPause:
		in.pause = true
	case CmdType, CmdBackspace, CmdEnter:
		in.edits = append(in.edits, cmd)
	case CmdGoto:
		in.gotos = append(in.gotos, cmd.Cell)
	}
}
