package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

// Handle is a reference-counted owner of one engine session.
//
// The creator holds the initial reference. Retain hands out another
// counted reference and Release drops one; the session is torn down when
// the last reference goes. Apart from the counter, a Handle has no
// locking: callers must serialise every other method, across all holders.
type Handle struct {
	backend Backend
	refs    atomic.Int32

	constants Constants
	session   Session
	computed  bool
}

// NewHandle returns a handle with one reference and default constants.
func NewHandle(b Backend) *Handle {
	h := &Handle{backend: b, constants: DefaultConstants()}
	h.refs.Store(1)
	return h
}

// LoadConfig validates cfg and replaces the handle constants with it.
// A nil cfg loads the defaults.
func (h *Handle) LoadConfig(cfg *config.Config) error {
	if h.Released() {
		return ErrReleased
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigLoad, err)
		}
	}
	h.constants = ConstantsFromConfig(cfg)
	return nil
}

// SetUp prepares an engine session for vol.
func (h *Handle) SetUp(vol *volume.PolarVolume) error {
	if h.Released() {
		return ErrReleased
	}
	if h.session != nil {
		return fmt.Errorf("%w: handle is already set up", ErrSetupFailed)
	}
	if vol == nil {
		return fmt.Errorf("%w: no polar volume", ErrSetupFailed)
	}
	s, err := h.backend.SetUp(vol, h.constants)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSetupFailed, err)
	}
	if s == nil {
		return ErrAllocationFailed
	}
	h.session = s
	h.computed = false
	return nil
}

// Compute runs the estimation with the current constants. It may be
// called again after the constants change.
func (h *Handle) Compute() error {
	if h.Released() {
		return ErrReleased
	}
	if h.session == nil {
		return fmt.Errorf("%w: %w", ErrComputeFailed, ErrNotSetUp)
	}
	if err := h.session.Compute(h.constants); err != nil {
		h.computed = false
		return fmt.Errorf("%w: %v", ErrComputeFailed, err)
	}
	h.computed = true
	return nil
}

// Computed reports whether the last Compute succeeded.
func (h *Handle) Computed() bool { return h.computed }

// RowCount returns the number of height bins, or 0 before Compute.
func (h *Handle) RowCount() int {
	if !h.computed || h.session == nil {
		return 0
	}
	return h.session.RowCount()
}

// ColCount returns the number of columns per row, or 0 before Compute.
func (h *Handle) ColCount() int {
	if !h.computed || h.session == nil {
		return 0
	}
	return h.session.ColCount()
}

// Profile returns a view of one result matrix. The view borrows the
// session buffer and must not be used after the handle is torn down.
func (h *Handle) Profile(v profile.Variant) (*profile.Matrix, error) {
	if h.Released() {
		return nil, ErrReleased
	}
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", profile.ErrInvalidVariant, int(v))
	}
	if !h.computed || h.session == nil {
		return nil, profile.ErrNotComputed
	}
	data := h.session.Profile(int(v))
	if data == nil {
		return nil, profile.ErrNotComputed
	}
	return profile.NewMatrix(v, h.session.RowCount(), h.session.ColCount(), data)
}

// Constants returns the live configuration block.
func (h *Handle) Constants() *Constants { return &h.constants }

// Retain adds a reference and returns h. Retaining a released handle is a
// programming error and panics.
func (h *Handle) Retain() *Handle {
	for {
		n := h.refs.Load()
		if n <= 0 {
			panic("engine: Retain on released handle")
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return h
		}
	}
}

// Share retains h for a new holder and returns that holder's release func.
// Calling the func more than once drops only the one reference.
func (h *Handle) Share() (release func()) {
	h.Retain()
	var once sync.Once
	return func() { once.Do(h.Release) }
}

// Release drops a reference. Each holder must release exactly once; a
// second call drops someone else's reference. Holders that cannot promise
// this should take their reference through Share. The last Release tears
// the session down; calls after that are no-ops.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	for {
		n := h.refs.Load()
		if n <= 0 {
			return
		}
		if h.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				h.tearDown()
			}
			return
		}
	}
}

// Refs returns the current reference count.
func (h *Handle) Refs() int { return int(h.refs.Load()) }

// Released reports whether the last reference has been dropped.
func (h *Handle) Released() bool { return h.refs.Load() <= 0 }

func (h *Handle) tearDown() {
	if h.session != nil {
		h.session.TearDown()
		h.session = nil
	}
	h.computed = false
}
