// Package bg decides whether background work runs on its own goroutine.
// Production wiring uses Async; tests use Sync so side effects are visible
// as soon as the call returns.
package bg

// Runner executes fn, synchronously or not.
type Runner interface {
	Do(fn func())
}

// Async runs each fn in a new goroutine.
type Async struct{}

func (Async) Do(fn func()) {
	go fn()
}

// Sync runs fn in the caller's goroutine.
type Sync struct{}

func (Sync) Do(fn func()) {
	fn()
}
