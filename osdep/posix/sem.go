//go:build linux

package posix

import (
	"github.com/rigado/blecore"
	"github.com/rigado/blecore/osdep"
)

// sem keeps its count as tokens in a buffered channel sized to the limit,
// so a give at the limit falls through the default case.
type sem struct {
	tokens chan struct{}
	limit  uint32
}

// maxChanLimit caps the token channel for unbounded semaphores.
const maxChanLimit = 1 << 16

func newSem(initial, limit uint32) (*sem, error) {
	if limit == 0 || limit > maxChanLimit {
		limit = maxChanLimit
	}
	if initial > limit {
		return nil, blecore.Wrapf(blecore.EINVAL, "sem init", "initial %d above limit %d", initial, limit)
	}

	s := &sem{tokens: make(chan struct{}, limit), limit: limit}
	for i := uint32(0); i < initial; i++ {
		s.tokens <- struct{}{}
	}
	return s, nil
}

func (s *sem) Take(t osdep.Timeout) error {
	switch {
	case t.IsNoWait():
		select {
		case <-s.tokens:
			return nil
		default:
			return blecore.ETIMEDOUT
		}

	case t.IsForever():
		<-s.tokens
		return nil
	}

	c, stop := after(t)
	defer stop()
	select {
	case <-s.tokens:
		return nil
	case <-c:
		// a give may race the expiry
		select {
		case <-s.tokens:
			return nil
		default:
			return blecore.ETIMEDOUT
		}
	}
}

func (s *sem) Give() error {
	select {
	case s.tokens <- struct{}{}:
	default:
		// saturate
	}
	return nil
}

func (s *sem) Count() uint32 {
	return uint32(len(s.tokens))
}

func (s *sem) Reset() error {
	for {
		select {
		case <-s.tokens:
		default:
			return nil
		}
	}
}
