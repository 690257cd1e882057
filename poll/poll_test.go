package poll

import (
	"errors"
	"testing"
	"time"

	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
	_ "github.com/rigado/blecore/osdep/posix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventInit(t *testing.T) {
	s := NewSignal()
	var e Event

	require.NoError(t, EventInit(&e, TypeSignal, ModeNotifyOnly, s))
	assert.Equal(t, TypeSignal, e.Type())
	assert.Equal(t, StateNotReady, e.State())

	require.NoError(t, EventInit(&e, TypeIgnore, ModeNotifyOnly, nil))

	err := EventInit(&e, TypeSignal, Mode(1), s)
	assert.True(t, errors.Is(err, blecore.EINVAL), "got %v", err)

	err = EventInit(&e, TypeSignal, ModeNotifyOnly, nil)
	assert.True(t, errors.Is(err, blecore.EINVAL), "got %v", err)

	err = EventInit(&e, Type(blecore.MaxPollTypes), ModeNotifyOnly, s)
	assert.True(t, errors.Is(err, blecore.EINVAL), "got %v", err)
}

func TestEventInitReserved(t *testing.T) {
	prev := blecore.CurrentConfig()
	defer func() { require.NoError(t, blecore.SetConfig(prev)) }()

	c := prev
	c.PollNumTypes = blecore.MaxPollTypes
	require.NoError(t, blecore.SetConfig(c))

	s := NewSignal()
	var e Event
	for _, typ := range []Type{TypeMsgQ, TypePipe, TypeSem} {
		err := EventInit(&e, typ, ModeNotifyOnly, s)
		assert.True(t, errors.Is(err, blecore.ENOTSUP), "%s: got %v", typ, err)
	}
}

func TestPollNotReady(t *testing.T) {
	s := NewSignal()
	e, err := NewEvent(TypeSignal, s)
	require.NoError(t, err)

	err = Poll([]*Event{e}, osdep.NoWait)
	assert.True(t, errors.Is(err, blecore.EAGAIN), "got %v", err)

	start := time.Now()
	err = Poll([]*Event{e}, osdep.Millis(30))
	assert.True(t, errors.Is(err, blecore.EAGAIN), "got %v", err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	// nothing stays registered on the source
	assert.True(t, s.events.IsEmpty())
	assert.Nil(t, e.poller)
}

func TestPollSignalWakes(t *testing.T) {
	s := NewSignal()
	e, err := NewEvent(TypeSignal, s)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Raise(7)
	}()

	require.NoError(t, Poll([]*Event{e}, osdep.Seconds(2)))
	assert.Equal(t, StateSignaled, e.State())
	ok, result := s.Check()
	assert.True(t, ok)
	assert.Equal(t, 7, result)
	assert.True(t, s.events.IsEmpty())
}

func TestSignalLevel(t *testing.T) {
	s := NewSignal()
	s.Raise(1)

	e, err := NewEvent(TypeSignal, s)
	require.NoError(t, err)
	require.NoError(t, Poll([]*Event{e}, osdep.NoWait))
	require.NoError(t, Poll([]*Event{e}, osdep.NoWait))

	s.Reset()
	err = Poll([]*Event{e}, osdep.NoWait)
	assert.True(t, errors.Is(err, blecore.EAGAIN), "got %v", err)
}

func TestPollMany(t *testing.T) {
	a, b := NewSignal(), NewSignal()
	ign, err := NewEvent(TypeIgnore, nil)
	require.NoError(t, err)
	ea, err := NewEvent(TypeSignal, a)
	require.NoError(t, err)
	eb, err := NewEvent(TypeSignal, b)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Raise(0)
	}()

	require.NoError(t, Poll([]*Event{ign, ea, eb}, osdep.Seconds(2)))
	assert.Equal(t, StateNotReady, ea.State())
	assert.Equal(t, StateSignaled, eb.State())
	assert.True(t, a.events.IsEmpty())
	assert.True(t, b.events.IsEmpty())
}

func TestPollNilEvent(t *testing.T) {
	err := Poll([]*Event{nil}, osdep.NoWait)
	assert.True(t, errors.Is(err, blecore.EINVAL), "got %v", err)
}
