package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Callbacks fire synchronously on the
// goroutine calling Advance, in deadline order, with Now set to each
// callback's deadline while it runs.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	fake     *Fake
	deadline time.Time
	seq      int
	callback func()
	stopped  bool
	fired    bool
}

// NewFake returns a Fake starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake instant.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// AfterFunc schedules callback at Now()+delay.
func (fake *Fake) AfterFunc(delay time.Duration, callback func()) Timer {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	fake.seq++
	timer := &fakeTimer{
		fake:     fake,
		deadline: fake.now.Add(delay),
		seq:      fake.seq,
		callback: callback,
	}
	fake.timers = append(fake.timers, timer)
	return timer
}

// Advance moves time forward by delta, firing every timer that comes due,
// including timers scheduled by callbacks during the advance.
func (fake *Fake) Advance(delta time.Duration) {
	fake.mu.Lock()
	target := fake.now.Add(delta)
	fake.mu.Unlock()

	for {
		timer := fake.nextDue(target)
		if timer == nil {
			break
		}
		timer.callback()
	}

	fake.mu.Lock()
	if fake.now.Before(target) {
		fake.now = target
	}
	fake.mu.Unlock()
}

// Pending returns the number of timers that have neither fired nor stopped.
func (fake *Fake) Pending() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	count := 0
	for _, timer := range fake.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

func (fake *Fake) nextDue(target time.Time) *fakeTimer {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	live := fake.timers[:0]
	for _, timer := range fake.timers {
		if !timer.stopped && !timer.fired {
			live = append(live, timer)
		}
	}
	fake.timers = live
	sort.SliceStable(fake.timers, func(i, j int) bool {
		if fake.timers[i].deadline.Equal(fake.timers[j].deadline) {
			return fake.timers[i].seq < fake.timers[j].seq
		}
		return fake.timers[i].deadline.Before(fake.timers[j].deadline)
	})

	if len(fake.timers) == 0 || fake.timers[0].deadline.After(target) {
		return nil
	}
	timer := fake.timers[0]
	timer.fired = true
	if fake.now.Before(timer.deadline) {
		fake.now = timer.deadline
	}
	return timer
}

func (timer *fakeTimer) Stop() bool {
	timer.fake.mu.Lock()
	defer timer.fake.mu.Unlock()
	if timer.stopped || timer.fired {
		return false
	}
	timer.stopped = true
	return true
}
