package storage

import (
	"errors"
	"testing"

	"github.com/rigado/blecore"
	"github.com/stretchr/testify/assert"
)

func TestStubNotSupported(t *testing.T) {
	s := Default()
	called := false
	load := func(string, int, ReadFunc) error {
		called = true
		return nil
	}

	errs := []error{
		s.Init(),
		s.Load(),
		s.LoadSubtreeDirect("bt", load),
		s.SaveOne("bt/id", []byte{1}),
		s.Delete("bt/id"),
	}
	next, ok, err := s.NameSteq("bt/id", "bt")
	errs = append(errs, err)
	assert.Empty(t, next)
	assert.False(t, ok)

	n, rest, err := s.NameNext("bt/id")
	errs = append(errs, err)
	assert.Zero(t, n)
	assert.Empty(t, rest)

	for _, err := range errs {
		assert.True(t, errors.Is(err, blecore.ENOTSUP), "got %v", err)
		assert.Equal(t, blecore.ENOTSUP.Code(), blecore.Code(err))
	}
	assert.False(t, called)
}

func TestSetDefault(t *testing.T) {
	defer SetDefault(nil)
	SetDefault(Stub{})
	assert.IsType(t, Stub{}, Default())
	SetDefault(nil)
	assert.IsType(t, Stub{}, Default())
}
