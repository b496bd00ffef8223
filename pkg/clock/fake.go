package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake управляемые часы для тестов.
// Таймеры срабатывают только внутри Advance, синхронно, в порядке времени срабатывания.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *Fake
	at      time.Time
	seq     uint64
	f       func()
	stopped bool
	fired   bool
}

// NewFake создает Fake, начинающиеся с указанного момента
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now возвращает текущее виртуальное время
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc регистрирует вызов f через d виртуального времени.
// Таймер с d <= 0 сработает при ближайшем Advance (включая Advance(0)).
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{
		clock: c,
		at:    c.now.Add(d),
		seq:   c.seq,
		f:     f,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance сдвигает время на d и вызывает все созревшие таймеры.
// Таймеры, созданные колбэками и попадающие в окно, тоже срабатывают.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		t := c.nextDue(target)
		if t == nil {
			break
		}
		t.f()
	}

	c.mu.Lock()
	if c.now.Before(target) {
		c.now = target
	}
	c.mu.Unlock()
}

// Pending возвращает количество активных таймеров
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			count++
		}
	}
	return count
}

// nextDue извлекает ближайший таймер не позже target и сдвигает now до его времени
func (c *Fake) nextDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			active = append(active, t)
		}
	}
	c.timers = active

	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})

	if len(c.timers) == 0 || c.timers[0].at.After(target) {
		return nil
	}

	t := c.timers[0]
	t.fired = true
	if t.at.After(c.now) {
		c.now = t.at
	}
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NextDeadline возвращает время до ближайшего активного таймера
func (c *Fake) NextDeadline() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		next  time.Time
		found bool
	)
	for _, t := range c.timers {
		if t.stopped || t.fired {
			continue
		}
		if !found || t.at.Before(next) {
			next = t.at
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return next.Sub(c.now), true
}
