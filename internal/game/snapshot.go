package game

import (
	"github.com/annel0/tile-brawl/internal/combat"
	"github.com/annel0/tile-brawl/internal/entity"
	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

// EntityView состояние сущности на конец тика
type EntityView struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Name      string            `json:"name,omitempty"`
	Parent    string            `json:"parent,omitempty"`
	Visible   bool              `json:"visible"`
	Animation string            `json:"animation"`
	Position  *vec.Vec2Float    `json:"position,omitempty"`
	Velocity  *vec.Vec2Float    `json:"velocity,omitempty"`
	Box       *grid.BoundingBox `json:"box,omitempty"`
	Facing    string            `json:"facing,omitempty"`
	MoveLock  bool              `json:"move_lock,omitempty"`
	Phase     string            `json:"phase,omitempty"`
	Brain     string            `json:"brain,omitempty"`
	Target    string            `json:"target,omitempty"`
	Path      int               `json:"path,omitempty"` // оставшиеся точки маршрута
}

// ConsoleView консоль NPC
type ConsoleView struct {
	NPC          string   `json:"npc"`
	TypedCommand string   `json:"typed_command"`
	Messages     []string `json:"messages"`
	Opened       bool     `json:"opened"`
}

// TilesView тайловый индекс, строки сверху вниз (верхняя строка имеет наибольший y)
type TilesView struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Version uint64   `json:"version"`
	Rows    []string `json:"rows"`
}

// Snapshot неизменяемая копия состояния на конец тика.
// Читатели вне игрового цикла получают только её.
type Snapshot struct {
	Tick     uint64           `json:"tick"`
	State    string           `json:"state"`
	Player   string           `json:"player"`
	Entities []EntityView     `json:"entities"`
	Index    world.IndexStats `json:"index"`
	Tiles    TilesView        `json:"tiles"`
	Consoles []ConsoleView    `json:"consoles"`

	cells map[vec.Vec2][]entity.ID
}

// CellEntities сущности, числящиеся в ячейке
func (s *Snapshot) CellEntities(cell vec.Vec2) []string {
	ids := s.cells[cell]
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// Entity ищет сущность по строковому идентификатору
func (s *Snapshot) Entity(id string) (EntityView, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityView{}, false
}

func viewOf(reg *entity.Registry, e *entity.Entity) EntityView {
	v := EntityView{
		ID:        e.ID.String(),
		Kind:      e.Kind.String(),
		Name:      e.Name,
		Visible:   e.Visible,
		Animation: e.Animation.String(),
	}
	if !e.Parent.IsNil() {
		v.Parent = e.Parent.String()
	}
	if e.Body != nil {
		pos, vel := e.Body.Position, e.Body.Velocity
		v.Position, v.Velocity = &pos, &vel
	}
	if e.Coordinate != nil && e.Coordinate.Tracked {
		box := e.Coordinate.Box
		v.Box = &box
	}
	if e.Facing != nil {
		v.Facing = e.Facing.Direction.String()
	}
	if e.Fighter != nil {
		v.MoveLock = e.Fighter.MoveLock
		v.Phase = combat.PhaseOf(reg, e.ID).String()
	}
	if e.Brain != nil {
		v.Brain = e.Brain.State
		if target, ok := e.Brain.Lock.Target(); ok {
			v.Target = target.String()
		}
	}
	if e.Nav != nil {
		v.Path = len(e.Nav.Path)
	}
	return v
}

// renderTiles рисует тайлы так же, как текстовая раскладка уровня
func renderTiles(tiles *world.TileGridMap) TilesView {
	w, h := tiles.Width(), tiles.Height()
	view := TilesView{Width: w, Height: h, Version: tiles.Version()}
	for y := h - 1; y >= 0; y-- {
		row := make([]byte, w)
		for x := 0; x < w; x++ {
			cell := vec.Vec2{X: x, Y: y}
			switch {
			case !tiles.Contains(cell):
				row[x] = ' '
			case tiles.KindAt(cell) == world.Wall:
				row[x] = '#'
			default:
				row[x] = '.'
			}
		}
		view.Rows = append(view.Rows, string(row))
	}
	return view
}
