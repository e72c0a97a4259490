// Package sasl2 manages the process-wide lifetime of libsasl2.
//
// The C library keeps global state that must be initialised before use
// and torn down with sasl_done exactly once. A Scope counts holders so
// independent callers can share one initialisation, and the last Release
// always runs the teardown.
//
// The cgo binding is compiled with the sasl2 build tag and links against
// the flags file written by sasl2-build:
//
//	sasl2-build resolve --cgo-file pkg/sasl2/zz_sasl2_cgo.go --cgo-package sasl2 --cgo-tag sasl2
//
// Without the tag, Native returns a Library whose calls fail with
// ErrNotLinked.
package sasl2

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotLinked is returned by the Native library when the binary was
// built without the sasl2 tag.
var ErrNotLinked = errors.New("sasl2: libsasl2 is not linked into this binary (build with -tags sasl2)")

// ErrNotAcquired is returned by Release on a Scope with no holders.
var ErrNotAcquired = errors.New("sasl2: release without a matching acquire")

// Library is the subset of libsasl2's global API the scope drives.
type Library interface {
	ClientInit() error
	ServerInit(app string) error
	Done()
	VersionInfo() (VersionInfo, error)
	Mechanisms() []string
}

// VersionInfo is what sasl_version_info reports at run time.
type VersionInfo struct {
	Implementation string
	Version        string
	Major          int
	Minor          int
	Step           int
	Patch          string
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s %d.%d.%d", v.Implementation, v.Major, v.Minor, v.Step)
}

// Error is a non-OK libsasl2 result code.
type Error struct {
	Op      string
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Scope is a reference-counted acquisition of the library. The zero value
// is not usable; call NewScope.
type Scope struct {
	lib Library

	mu      sync.Mutex
	holders int
	server  string
}

// NewScope returns a Scope over lib.
func NewScope(lib Library) *Scope {
	return &Scope{lib: lib}
}

// Acquire initialises the library on first use and registers a holder.
// A non-empty app also initialises server support under that name; the
// first app to do so wins and later names must match.
func (s *Scope) Acquire(ctx context.Context, app string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holders == 0 {
		if err := s.lib.ClientInit(); err != nil {
			return err
		}
	}
	if app != "" {
		switch s.server {
		case "":
			if err := s.lib.ServerInit(app); err != nil {
				if s.holders == 0 {
					s.lib.Done()
				}
				return err
			}
			s.server = app
		case app:
		default:
			if s.holders == 0 {
				s.lib.Done()
			}
			return fmt.Errorf("sasl2: server already initialised as %q, not %q", s.server, app)
		}
	}
	s.holders++
	return nil
}

// Release drops a holder. The last holder tears the library down.
func (s *Scope) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holders == 0 {
		return ErrNotAcquired
	}
	s.holders--
	if s.holders == 0 {
		s.lib.Done()
		s.server = ""
	}
	return nil
}

// Holders returns the current holder count.
func (s *Scope) Holders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holders
}

// Do runs fn between Acquire and Release.
func (s *Scope) Do(ctx context.Context, app string, fn func(Library) error) (err error) {
	if err := s.Acquire(ctx, app); err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	return fn(s.lib)
}
