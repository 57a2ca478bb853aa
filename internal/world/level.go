package world

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/vec"
)

// ErrBadLayout ошибка разбора текстовой раскладки уровня
var ErrBadLayout = errors.New("bad level layout")

// Символы раскладки
const (
	glyphWall   = '#'
	glyphFloor  = '.'
	glyphPlayer = 'P'
	glyphNPC    = 'N'
)

// TileSpec тайл уровня до загрузки в индекс
type TileSpec struct {
	Cell vec.Vec2 `json:"cell"`
	Kind TileKind `json:"kind"`
}

// NPCSpawn точка появления NPC
type NPCSpawn struct {
	Name string   `json:"name"`
	Cell vec.Vec2 `json:"cell"`
}

// Level описание уровня: тайлы и точки появления
type Level struct {
	Name        string     `json:"name"`
	Seed        int64      `json:"seed"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Tiles       []TileSpec `json:"tiles"`
	PlayerSpawn vec.Vec2   `json:"player_spawn"`
	NPCs        []NPCSpawn `json:"npcs"`
}

// layoutHeader необязательный YAML-заголовок раскладки между строками ---
type layoutHeader struct {
	Name string   `yaml:"name"`
	NPCs []string `yaml:"npcs"`
}

// ParseLayout разбирает текстовую раскладку уровня:
//
//	---
//	name: arena
//	npcs: [Alice, Bob]
//	---
//	#####
//	#P.N#
//	#####
//
// Верхняя строка файла имеет наибольший y. P и N стоят на полу.
func ParseLayout(data []byte) (*Level, error) {
	header, body, err := splitHeader(data)
	if err != nil {
		return nil, err
	}

	var rows []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadLayout, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: пустая раскладка", ErrBadLayout)
	}

	lvl := &Level{Name: header.Name, Height: len(rows)}
	playerFound := false
	for row, line := range rows {
		y := len(rows) - 1 - row
		if len(line) > lvl.Width {
			lvl.Width = len(line)
		}
		for x, ch := range line {
			cell := vec.Vec2{X: x, Y: y}
			switch ch {
			case glyphWall:
				lvl.Tiles = append(lvl.Tiles, TileSpec{Cell: cell, Kind: Wall})
			case glyphFloor:
				lvl.Tiles = append(lvl.Tiles, TileSpec{Cell: cell, Kind: Floor})
			case glyphPlayer:
				if playerFound {
					return nil, fmt.Errorf("%w: больше одного игрока (%d,%d)", ErrBadLayout, x, y)
				}
				playerFound = true
				lvl.PlayerSpawn = cell
				lvl.Tiles = append(lvl.Tiles, TileSpec{Cell: cell, Kind: Floor})
			case glyphNPC:
				name := fmt.Sprintf("npc-%d", len(lvl.NPCs)+1)
				if i := len(lvl.NPCs); i < len(header.NPCs) {
					name = header.NPCs[i]
				}
				lvl.NPCs = append(lvl.NPCs, NPCSpawn{Name: name, Cell: cell})
				lvl.Tiles = append(lvl.Tiles, TileSpec{Cell: cell, Kind: Floor})
			case ' ':
				// пустота: ячейка отсутствует и считается стеной
			default:
				return nil, fmt.Errorf("%w: неизвестный символ %q в (%d,%d)", ErrBadLayout, ch, x, y)
			}
		}
	}
	if !playerFound {
		return nil, fmt.Errorf("%w: нет точки появления игрока", ErrBadLayout)
	}
	return lvl, nil
}

func splitHeader(data []byte) (layoutHeader, []byte, error) {
	var h layoutHeader
	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte("---")) {
		return h, data, nil
	}
	rest := trimmed[3:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return h, nil, fmt.Errorf("%w: незакрытый заголовок", ErrBadLayout)
	}
	if err := yaml.Unmarshal(rest[:end], &h); err != nil {
		return h, nil, fmt.Errorf("%w: заголовок: %v", ErrBadLayout, err)
	}
	body := rest[end+4:]
	return h, body, nil
}

// Render возвращает текстовую раскладку уровня (без заголовка)
func (l *Level) Render() string {
	kinds := make(map[vec.Vec2]TileKind, len(l.Tiles))
	for _, t := range l.Tiles {
		kinds[t.Cell] = t.Kind
	}
	npcs := make(map[vec.Vec2]struct{}, len(l.NPCs))
	for _, n := range l.NPCs {
		npcs[n.Cell] = struct{}{}
	}

	var sb strings.Builder
	for y := l.Height - 1; y >= 0; y-- {
		for x := 0; x < l.Width; x++ {
			cell := vec.Vec2{X: x, Y: y}
			kind, ok := kinds[cell]
			switch {
			case cell == l.PlayerSpawn:
				sb.WriteByte(glyphPlayer)
			case hasCell(npcs, cell):
				sb.WriteByte(glyphNPC)
			case !ok:
				sb.WriteByte(' ')
			case kind == Floor:
				sb.WriteByte(glyphFloor)
			default:
				sb.WriteByte(glyphWall)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func hasCell(set map[vec.Vec2]struct{}, c vec.Vec2) bool {
	_, ok := set[c]
	return ok
}

// Load заполняет индекс тайлов, создавая для каждого тайла сущность
func (l *Level) Load(reg *entity.Registry, tiles *TileGridMap) {
	for _, t := range l.Tiles {
		e := reg.Spawn(entity.KindTile, "")
		tiles.Insert(t.Cell, e.ID, t.Kind)
	}
}
