package work

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// MainName is the name of the process wide default queue.
const MainName = "main_work"

var mainQ Queue

// Main returns the process wide default queue.
func Main() *Queue {
	return &mainQ
}

// StartMain starts the default queue with the stack size, priority and
// yield policy of the current config.
func StartMain() error {
	c := blecore.CurrentConfig()
	cfg := &QueueConfig{Name: MainName, NoYield: c.WorkQueueNoYield}
	return mainQ.Start(c.MainStackSize, osdep.Priority(c.MainPriority), cfg)
}

// StopMain plugs and stops the default queue.
func StopMain(t osdep.Timeout) error {
	if !mainQ.IsStarted() {
		return blecore.Wrapf(blecore.EALREADY, "work.StopMain", "main queue not started")
	}
	if err := mainQ.Drain(true); err != nil {
		return err
	}
	return mainQ.Stop(t)
}
