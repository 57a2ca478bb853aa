package world

import (
	"fmt"
	"math/rand"

	"github.com/annel0/tile-brawl/internal/util"
	"github.com/annel0/tile-brawl/internal/vec"
)

// Пороги генерации
const (
	WallThreshold  = 0.62 // Выше - стена внутри уровня
	MinNPCDistance = 3    // Манхэттенское расстояние NPC от игрока
)

// LevelGenerator строит уровень из шума Перлина
type LevelGenerator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб шума (сглаженность стен)
	noise      *util.Noise
}

// NewLevelGenerator создаёт новый генератор уровней
func NewLevelGenerator(seed int64) *LevelGenerator {
	return &LevelGenerator{
		Seed:       seed,
		NoiseScale: 0.15,
		noise:      util.NewNoise(seed),
	}
}

// Generate строит уровень width x height с рамкой из стен.
// Игрок появляется на полу ближе всего к центру, NPC только в области,
// достижимой от игрока. Один и тот же сид даёт один и тот же уровень.
func (g *LevelGenerator) Generate(width, height, npcCount int) (*Level, error) {
	if width < 3 || height < 3 {
		return nil, fmt.Errorf("уровень %dx%d слишком мал", width, height)
	}

	// Создаем локальный генератор случайных чисел для детерминированности
	rng := rand.New(rand.NewSource(g.Seed))

	kinds := make([][]TileKind, height)
	for y := 0; y < height; y++ {
		kinds[y] = make([]TileKind, width)
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				kinds[y][x] = Wall
				continue
			}
			h := g.noise.At(float64(x)*g.NoiseScale, float64(y)*g.NoiseScale)
			if h > WallThreshold {
				kinds[y][x] = Wall
			} else {
				kinds[y][x] = Floor
			}
		}
	}

	spawn, ok := nearestFloor(kinds, vec.Vec2{X: width / 2, Y: height / 2})
	if !ok {
		return nil, fmt.Errorf("сид %d не дал ни одной клетки пола", g.Seed)
	}

	lvl := &Level{
		Name:        fmt.Sprintf("perlin-%d", g.Seed),
		Seed:        g.Seed,
		Width:       width,
		Height:      height,
		PlayerSpawn: spawn,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			lvl.Tiles = append(lvl.Tiles, TileSpec{Cell: vec.Vec2{X: x, Y: y}, Kind: kinds[y][x]})
		}
	}

	candidates := reachable(kinds, spawn)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, c := range candidates {
		if len(lvl.NPCs) >= npcCount {
			break
		}
		if c.ManhattanTo(spawn) < MinNPCDistance {
			continue
		}
		lvl.NPCs = append(lvl.NPCs, NPCSpawn{
			Name: fmt.Sprintf("npc-%d", len(lvl.NPCs)+1),
			Cell: c,
		})
	}
	return lvl, nil
}

// nearestFloor ищет ближайшую к центру клетку пола
func nearestFloor(kinds [][]TileKind, center vec.Vec2) (vec.Vec2, bool) {
	best := vec.Vec2{}
	bestDist := -1
	for y := range kinds {
		for x := range kinds[y] {
			if kinds[y][x] != Floor {
				continue
			}
			c := vec.Vec2{X: x, Y: y}
			if d := c.ManhattanTo(center); bestDist < 0 || d < bestDist {
				best, bestDist = c, d
			}
		}
	}
	return best, bestDist >= 0
}

// reachable обходом в ширину собирает клетки пола, связанные со start
func reachable(kinds [][]TileKind, start vec.Vec2) []vec.Vec2 {
	dirs := []vec.Vec2{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	visited := map[vec.Vec2]bool{start: true}
	queue := []vec.Vec2{start}
	var out []vec.Vec2
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		out = append(out, c)
		for _, d := range dirs {
			n := c.Add(d)
			if n.Y < 0 || n.Y >= len(kinds) || n.X < 0 || n.X >= len(kinds[n.Y]) {
				continue
			}
			if visited[n] || kinds[n.Y][n.X] != Floor {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
	return out
}
