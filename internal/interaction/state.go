// Package interaction отвечает за взаимодействие игрока с NPC и
// состояние приложения (игра, консоль, пауза, меню).
package interaction

// AppState состояние приложения
type AppState uint8

const (
	MainGame AppState = iota
	ConsoleOpened
	GamePaused
	MainMenu
	ControlMenu
)

func (s AppState) String() string {
	switch s {
	case MainGame:
		return "main_game"
	case ConsoleOpened:
		return "console_opened"
	case GamePaused:
		return "game_paused"
	case MainMenu:
		return "main_menu"
	case ControlMenu:
		return "control_menu"
	default:
		return "unknown"
	}
}

// Transition смена состояния
type Transition struct {
	From AppState `json:"from"`
	To   AppState `json:"to"`
}

// StateMachine хранит текущее состояние и запрошенное следующее.
// Запрос применяется в конце тика, так что все системы тика видят одно состояние.
type StateMachine struct {
	current AppState
	next    AppState
	pending bool
}

// NewStateMachine создаёт автомат в состоянии initial
func NewStateMachine(initial AppState) *StateMachine {
	return &StateMachine{current: initial}
}

// Current текущее состояние
func (m *StateMachine) Current() AppState { return m.current }

// Request запрашивает переход; последний запрос в тике побеждает
func (m *StateMachine) Request(next AppState) {
	m.next = next
	m.pending = true
}

// Pending возвращает запрошенное состояние, если оно есть
func (m *StateMachine) Pending() (AppState, bool) {
	return m.next, m.pending
}

// Apply применяет запрошенный переход. Запрос того же состояния перехода не даёт.
func (m *StateMachine) Apply() (Transition, bool) {
	if !m.pending {
		return Transition{}, false
	}
	m.pending = false
	if m.next == m.current {
		return Transition{}, false
	}
	tr := Transition{From: m.current, To: m.next}
	m.current = m.next
	return tr, true
}
