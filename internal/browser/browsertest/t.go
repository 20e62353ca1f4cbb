package browsertest

import (
	"fmt"
	"runtime"
	"sync"
)

// T records failures from code under test that takes a browser.T. FailNow ends
// the calling goroutine, so the body must run under Run.
type T struct {
	name string

	mu     sync.Mutex
	failed bool
	errors []string
}

// Run executes fn on its own goroutine with a fresh T and waits for it to
// return or call FailNow.
func Run(name string, fn func(t *T)) *T {
	t := &T{name: name}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(t)
	}()
	<-done
	return t
}

func (t *T) Helper() {}

func (t *T) Name() string { return t.name }

func (t *T) Errorf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
	t.errors = append(t.errors, fmt.Sprintf(format, args...))
}

func (t *T) FailNow() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
	runtime.Goexit()
}

// Failed reports whether Errorf or FailNow was called.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Errors returns the recorded failure messages.
func (t *T) Errors() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.errors...)
}
