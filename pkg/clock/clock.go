package clock

import "time"

// Timer отменяемый отложенный вызов
type Timer interface {
	// Stop отменяет вызов. Возвращает false, если вызов уже произошел или был отменен
	Stop() bool
}

// Clock источник времени и таймеров.
// Все таймеры live feed создаются через Clock, чтобы тесты могли управлять временем.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real возвращает Clock на основе пакета time
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
