package device

import "sync"

// waitSet is the readiness primitive coordinating the sensor tick with
// blocked readers. Registration hands out the current generation
// channel; signal closes that generation and installs a fresh one, so
// every channel obtained before a signal is woken by it.
//
// The register-before-check discipline is what prevents lost wakeups: a
// consumer grabs the channel first, then tests the buffer, then waits.
// If the producer publishes between the test and the wait, the channel
// the consumer already holds is closed. Wakeups are broadcast; woken
// consumers re-check the condition themselves and may find another
// consumer won the race.
type waitSet struct {
	mu sync.Mutex
	ch chan struct{}
}

func newWaitSet() *waitSet {
	return &waitSet{ch: make(chan struct{})}
}

// register returns the channel that the next signal will close. Callers
// must obtain it before testing the condition they intend to wait on.
func (w *waitSet) register() <-chan struct{} {
	w.mu.Lock()
	ch := w.ch
	w.mu.Unlock()
	return ch
}

// signal wakes every consumer registered since the previous signal.
func (w *waitSet) signal() {
	w.mu.Lock()
	close(w.ch)
	w.ch = make(chan struct{})
	w.mu.Unlock()
}
