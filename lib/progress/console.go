package progress

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

type Console struct {
	writer  progress.Writer
	tracker *progress.Tracker
}

func NewConsole() *Console {
	writer := progress.NewWriter()
	writer.SetOutputWriter(os.Stderr)
	writer.SetTrackerLength(40)
	writer.SetUpdateFrequency(time.Millisecond * 250)
	writer.Style().Visibility.ETA = true
	writer.Style().Visibility.Speed = true
	return &Console{writer: writer}
}

func (c *Console) Start(message string, total, initial int64) {
	tracker := &progress.Tracker{
		Message: message,
		Total:   total,
		Units:   progress.UnitsDefault,
	}
	c.writer.AppendTracker(tracker)
	tracker.SetValue(initial)
	c.tracker = tracker

	go c.writer.Render()
}

func (c *Console) Increment(n int64) {
	c.tracker.Increment(n)
}

func (c *Console) SetMessage(message string) {
	c.tracker.UpdateMessage(message)
}

func (c *Console) Done() {
	c.tracker.MarkAsDone()
	c.writer.Stop()
}
