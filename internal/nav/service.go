package nav

import (
	"sync"

	"github.com/annel0/tile-brawl/internal/grid"
	"github.com/annel0/tile-brawl/internal/logging"
	"github.com/annel0/tile-brawl/internal/vec"
	"github.com/annel0/tile-brawl/internal/world"
)

// Service хранит текущую навигацию и перестраивает её при изменении тайлов.
// Если перестройка не удалась, остаётся предыдущая навигация.
type Service struct {
	mu      sync.RWMutex
	mesh    *Navmesh
	version uint64
	built   bool

	mapper grid.Mapper
	radius float64
	logger *logging.Logger
}

// NewService создаёт сервис для агентов радиуса agentRadius
func NewService(mapper grid.Mapper, agentRadius float64) *Service {
	return &Service{
		mapper: mapper,
		radius: agentRadius,
		logger: logging.GetNavLogger(),
	}
}

// Rebuild перестраивает навигацию, если версия тайлового индекса изменилась.
// Возвращает true, если навигация заменена.
func (s *Service) Rebuild(tiles *world.TileGridMap) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built && tiles.Version() == s.version {
		return false, nil
	}
	// Версию запоминаем и при ошибке, чтобы не повторять сборку каждый тик
	s.version = tiles.Version()
	s.built = true

	g := BuildNavability(tiles)
	mesh, err := Generate(g, s.mapper, s.radius)
	if err != nil {
		s.logger.Error("❌ Ошибка построения навигации: %v (оставлена предыдущая)", err)
		return false, err
	}
	s.mesh = mesh
	s.logger.Info("🧭 Навигация построена: %dx%d, проходимых ячеек %d", g.Width, g.Height, g.NavigableCount())
	return true, nil
}

// Current возвращает текущую навигацию
func (s *Service) Current() (*Navmesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mesh, s.mesh != nil
}

// FindPath ищет путь по текущей навигации
func (s *Service) FindPath(start, goal vec.Vec2Float) ([]vec.Vec2Float, error) {
	mesh, ok := s.Current()
	if !ok {
		return nil, ErrNoNavmesh
	}
	return mesh.FindPath(start, goal)
}
