// Package stack brings the runtime up and down. Components register
// entries that run in level order, then by priority, once per Init.
package stack

import (
	"errors"
	"sort"
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	_ "github.com/rigado/blecore/osdep/posix"
	_ "github.com/rigado/blecore/osdep/rtos"
	"github.com/rigado/blecore/storage"
	"github.com/rigado/blecore/work"
)

// Level orders entries coarsely.
type Level int

const (
	LevelBase Level = 1
	LevelRun  Level = 2
	LevelSvc  Level = 3
)

// Entry is a registered bring-up step.
type Entry struct {
	Name  string
	Level Level
	// Prio orders entries within a level, ascending.
	Prio int
	Init func() error
	// Stop is optional and runs in reverse order on Shutdown.
	Stop func(t osdep.Timeout) error
}

var (
	mu      sync.Mutex
	entries []Entry
	started []Entry
	up      bool

	log = blecore.PkgLogger("stack")
)

func init() {
	Register(Entry{
		Name:  "main_work",
		Level: LevelBase,
		Prio:  1,
		Init:  work.StartMain,
		Stop:  work.StopMain,
	})
	Register(Entry{
		Name:  "storage",
		Level: LevelSvc,
		Init:  func() error { return storage.Default().Init() },
	})
}

// Register adds e to the bring-up sequence. Entries registered after Init
// run on the next Init.
func Register(e Entry) {
	blecore.Assert(e.Init != nil, "stack: entry %q without init", e.Name)

	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, e)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level < entries[j].Level
		}
		return entries[i].Prio < entries[j].Prio
	})
}

// Entries lists the registered entry names in run order.
func Entries() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Init applies opts on top of the current config, selects the OS backend
// and runs every entry. Entries answering ENOTSUP are optional and skipped.
// On failure the entries already run are stopped again.
func Init(opts ...blecore.Option) error {
	mu.Lock()
	defer mu.Unlock()

	if up {
		return blecore.Wrapf(blecore.EALREADY, "stack.Init", "already initialised")
	}

	cfg := blecore.CurrentConfig()
	if err := cfg.Apply(opts...); err != nil {
		return err
	}
	if err := blecore.SetConfig(cfg); err != nil {
		return err
	}
	// a custom logger filters for itself
	if err := blecore.SetLogLevel(cfg.LogLevel); err != nil && !errors.Is(err, blecore.ENOTSUP) {
		return err
	}

	if err := osdep.Use(cfg.OSBackend); err != nil {
		return err
	}
	log.Infof("os backend %s", cfg.OSBackend)

	started = started[:0]
	for _, e := range entries {
		err := e.Init()
		switch {
		case err == nil:
			log.Debugf("init %s done", e.Name)
			started = append(started, e)
		case errors.Is(err, blecore.ENOTSUP):
			log.Debugf("init %s not supported", e.Name)
		default:
			log.Errorf("init %s failed: %v", e.Name, err)
			stopLocked(osdep.Seconds(1))
			return blecore.WrapErr(err, blecore.ErrnoOf(err), "stack.Init "+e.Name)
		}
	}

	up = true
	return nil
}

// Shutdown stops the started entries in reverse order, each waiting up to
// t. It returns the first error seen.
func Shutdown(t osdep.Timeout) error {
	mu.Lock()
	defer mu.Unlock()

	if !up {
		return blecore.Wrapf(blecore.EALREADY, "stack.Shutdown", "not initialised")
	}
	up = false
	return stopLocked(t)
}

func stopLocked(t osdep.Timeout) error {
	var first error
	for i := len(started) - 1; i >= 0; i-- {
		e := started[i]
		if e.Stop == nil {
			continue
		}
		if err := e.Stop(t); err != nil {
			log.Warnf("stop %s: %v", e.Name, err)
			if first == nil {
				first = err
			}
		}
	}
	started = started[:0]
	return first
}

// Running reports whether Init has completed without a Shutdown since.
func Running() bool {
	mu.Lock()
	defer mu.Unlock()
	return up
}
