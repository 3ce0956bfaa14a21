// Package progress is the narrow console-reporting surface the fetch
// loops write to. The loops only ever talk to Reporter; the go-pretty
// implementation below is wired in by the CLI.
package progress

type Reporter interface {
	Start(message string, total, initial int64)
	Increment(n int64)
	SetMessage(message string)
	Done()
}

// Noop discards all progress. Used by tests and quiet runs.
type Noop struct{}

func (Noop) Start(message string, total, initial int64) {}
func (Noop) Increment(n int64)                          {}
func (Noop) SetMessage(message string)                  {}
func (Noop) Done()                                      {}
