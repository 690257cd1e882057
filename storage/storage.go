// Package storage is the key/value settings surface used by the upper
// layers. The stack ships without a persistent backend; Stub answers every
// call with ENOTSUP.
package storage

import (
	"github.com/rigado/blecore"
)

// ReadFunc reads the value of a loaded key into p and returns the count of
// bytes read.
type ReadFunc func(p []byte) (int, error)

// LoadFunc is called for each key found under a subtree.
type LoadFunc func(key string, size int, read ReadFunc) error

// Store is a settings backend.
type Store interface {
	Init() error
	Load() error
	LoadSubtreeDirect(subtree string, fn LoadFunc) error
	SaveOne(key string, value []byte) error
	Delete(key string) error
	// NameSteq reports whether name starts with key and, if so, returns
	// the remainder after the separator in next.
	NameSteq(name, key string) (next string, ok bool, err error)
	// NameNext returns the position of the next separator in name together
	// with the part that follows it.
	NameNext(name string) (n int, next string, err error)
}

// Stub is the backend used when no persistent storage is built in.
type Stub struct{}

var _ Store = Stub{}

func notSupported(op string) error {
	return blecore.NewError(op, blecore.ENOTSUP)
}

func (Stub) Init() error {
	return notSupported("storage.Init")
}

func (Stub) Load() error {
	return notSupported("storage.Load")
}

func (Stub) LoadSubtreeDirect(string, LoadFunc) error {
	return notSupported("storage.LoadSubtreeDirect")
}

func (Stub) SaveOne(string, []byte) error {
	return notSupported("storage.SaveOne")
}

func (Stub) Delete(string) error {
	return notSupported("storage.Delete")
}

func (Stub) NameSteq(string, string) (string, bool, error) {
	return "", false, notSupported("storage.NameSteq")
}

func (Stub) NameNext(string) (int, string, error) {
	return 0, "", notSupported("storage.NameNext")
}

var def Store = Stub{}

// Default returns the process wide store.
func Default() Store {
	return def
}

// SetDefault installs s as the process wide store. A nil s restores Stub.
func SetDefault(s Store) {
	if s == nil {
		s = Stub{}
	}
	def = s
}
