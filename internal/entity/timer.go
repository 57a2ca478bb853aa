package entity

import "time"

// Timer одноразовый таймер: после срабатывания остаётся завершённым до Reset
type Timer struct {
	Duration time.Duration
	Elapsed  time.Duration
}

// NewTimer создаёт таймер на d
func NewTimer(d time.Duration) Timer {
	return Timer{Duration: d}
}

// Tick продвигает таймер на dt
func (t *Timer) Tick(dt time.Duration) {
	if t.Finished() {
		return
	}
	t.Elapsed += dt
	if t.Elapsed > t.Duration {
		t.Elapsed = t.Duration
	}
}

// Finished сообщает, истекло ли время
func (t *Timer) Finished() bool {
	return t.Elapsed >= t.Duration
}

// Reset перезапускает таймер с новой длительностью
func (t *Timer) Reset(d time.Duration) {
	t.Duration = d
	t.Elapsed = 0
}

// Remaining оставшееся время
func (t *Timer) Remaining() time.Duration {
	if t.Finished() {
		return 0
	}
	return t.Duration - t.Elapsed
}
