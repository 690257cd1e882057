// Package poll waits on several event sources at once. A source is any
// object that implements Source, such as a queue or a Signal.
package poll

import (
	"sync"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	"github.com/rigado/blecore/slist"
)

// Type is the kind of object an Event watches.
type Type int

const (
	TypeIgnore Type = iota
	TypeSignal
	TypeDataAvailable
	// reserved
	TypeMsgQ
	TypePipe
	TypeSem
)

func (t Type) String() string {
	switch t {
	case TypeIgnore:
		return "ignore"
	case TypeSignal:
		return "signal"
	case TypeDataAvailable:
		return "data_available"
	case TypeMsgQ:
		return "msgq"
	case TypePipe:
		return "pipe"
	case TypeSem:
		return "sem"
	}
	return "unknown"
}

// State is the bit set of conditions observed on an Event.
type State uint32

const (
	StateNotReady      State = 0
	StateSignaled      State = 1 << 0
	StateDataAvailable State = 1 << 1
	StateCancelled     State = 1 << 2
)

// Mode selects what poll does with a ready object. Only notification is
// supported: the caller fetches the data itself.
type Mode int

const ModeNotifyOnly Mode = 0

// Source is an object events can be registered on.
type Source interface {
	// PollRegister links e to the source. When the source is already ready
	// it records that on e with MarkReady and returns true without linking.
	PollRegister(e *Event) bool
	// PollUnregister unlinks e if it is still linked.
	PollUnregister(e *Event)
}

// EventList is the per-object list of registered events.
type EventList = slist.DList[Event, *Event]

// Event is one registration request passed to Poll.
type Event struct {
	node   slist.DNode[Event]
	poller *poller
	typ    Type
	mode   Mode
	state  State
	obj    Source
}

func (e *Event) DNode() *slist.DNode[Event] {
	return &e.node
}

func (e *Event) Type() Type {
	return e.typ
}

// State returns the conditions recorded by the last Poll.
func (e *Event) State() State {
	mu.Lock()
	defer mu.Unlock()
	return e.state
}

func (e *Event) Object() Source {
	return e.obj
}

type poller struct {
	polling bool
	sem     osdep.Sem
}

// mu guards the poller and state fields of every event.
var mu sync.Mutex

var log = blecore.PkgLogger("poll")

// EventInit prepares e to watch obj.
func EventInit(e *Event, typ Type, mode Mode, obj Source) error {
	if e == nil {
		return blecore.Wrapf(blecore.EINVAL, "poll.EventInit", "nil event")
	}
	if mode != ModeNotifyOnly {
		return blecore.Wrapf(blecore.EINVAL, "poll.EventInit", "unsupported mode %d", mode)
	}
	if typ < 0 || int(typ) >= blecore.CurrentConfig().PollNumTypes {
		return blecore.Wrapf(blecore.EINVAL, "poll.EventInit", "type %s beyond configured kinds", typ)
	}
	switch typ {
	case TypeMsgQ, TypePipe, TypeSem:
		return blecore.Wrapf(blecore.ENOTSUP, "poll.EventInit", "type %s is reserved", typ)
	case TypeIgnore:
	default:
		if obj == nil {
			return blecore.Wrapf(blecore.EINVAL, "poll.EventInit", "nil object for %s", typ)
		}
	}

	*e = Event{typ: typ, mode: mode, obj: obj}
	return nil
}

// NewEvent allocates and initialises an Event.
func NewEvent(typ Type, obj Source) (*Event, error) {
	e := &Event{}
	if err := EventInit(e, typ, ModeNotifyOnly, obj); err != nil {
		return nil, err
	}
	return e, nil
}

// MarkReady records state on e and wakes its poller. Sources call it from
// PollRegister and, through HandleObjEvents, when they become ready.
func MarkReady(e *Event, state State) {
	mu.Lock()
	defer mu.Unlock()
	markReadyLocked(e, state)
}

// markReadyLocked reports whether a waiting poller was woken.
func markReadyLocked(e *Event, state State) bool {
	e.state |= state
	p := e.poller
	if p == nil || !p.polling {
		return false
	}
	p.polling = false
	_ = p.sem.Give()
	return true
}

// HandleObjEvents is called by a source, with its own lock held, when it
// turns ready. Events are released in registration order until one wakes a
// poller that is still waiting, so one poller wakes per transition.
func HandleObjEvents(list *EventList, state State) {
	mu.Lock()
	defer mu.Unlock()
	for e := list.Get(); e != nil; e = list.Get() {
		if markReadyLocked(e, state) {
			return
		}
	}
}

// Poll waits up to t for any of events to become ready. It returns nil when
// one did and EAGAIN otherwise. All registrations are dropped before return.
func Poll(events []*Event, t osdep.Timeout) error {
	for _, e := range events {
		if e == nil {
			return blecore.Wrapf(blecore.EINVAL, "poll.Poll", "nil event")
		}
	}

	sem, err := osdep.NewSem(0, 1)
	if err != nil {
		return err
	}
	p := &poller{polling: true, sem: sem}

	registered := 0
	ready := false
	for _, e := range events {
		mu.Lock()
		e.poller = p
		e.state = StateNotReady
		mu.Unlock()

		registered++
		if e.typ == TypeIgnore {
			continue
		}
		if e.obj.PollRegister(e) {
			ready = true
			break
		}
	}

	if !ready && !t.IsNoWait() {
		ready = p.sem.Take(t) == nil
	}

	mu.Lock()
	p.polling = false
	mu.Unlock()
	for _, e := range events[:registered] {
		if e.typ != TypeIgnore {
			e.obj.PollUnregister(e)
		}
		mu.Lock()
		if e.state != StateNotReady {
			ready = true
		}
		e.poller = nil
		mu.Unlock()
	}

	if !ready {
		log.Debugf("no event ready after %d ms", t)
		return blecore.EAGAIN
	}
	return nil
}
