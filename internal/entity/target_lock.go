package entity

// TargetLock состояние захвата цели преследующей сущностью:
// либо цели нет, либо она захвачена с известной дистанцией.
type TargetLock struct {
	target   ID
	distance float64
	locked   bool
}

// Unset возвращает пустой захват
func Unset() TargetLock {
	return TargetLock{}
}

// Locked возвращает захват цели на дистанции distance
func Locked(target ID, distance float64) TargetLock {
	return TargetLock{target: target, distance: distance, locked: true}
}

// IsLocked сообщает, захвачена ли цель
func (l TargetLock) IsLocked() bool { return l.locked }

// Target возвращает цель и признак захвата
func (l TargetLock) Target() (ID, bool) {
	return l.target, l.locked
}

// Distance последняя известная дистанция до цели
func (l TargetLock) Distance() float64 { return l.distance }

func (l TargetLock) String() string {
	if !l.locked {
		return "unset"
	}
	return "locked " + l.target.String()
}
