// Package binding wraps an engine handle as a managed object: construction
// sets the engine up for one polar volume, Close releases it exactly once,
// and named attributes are reachable through the attrs bridge.
package binding

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/bmvandoren/vol2bird/internal/attrs"
	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/monitoring"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

// ErrNotPolarVolume is returned by New for objects of any other type.
var ErrNotPolarVolume = errors.New("object is not a polar volume")

type options struct {
	cfg     *config.Config
	metrics *monitoring.Metrics
	clock   clockwork.Clock
}

// Option configures New.
type Option func(*options)

// WithConfig loads cfg into the engine instead of the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithMetrics records session, compute and attribute metrics into m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the clock used to time computes.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Vol2Bird owns one engine handle. It is not safe for concurrent use.
type Vol2Bird struct {
	handle  *engine.Handle
	vol     *volume.PolarVolume
	bridge  *attrs.Bridge
	metrics *monitoring.Metrics
	clock   clockwork.Clock
}

// New sets up an engine session for obj, which must be a polar volume.
func New(b engine.Backend, obj volume.Object, opts ...Option) (*Vol2Bird, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	vol, ok := obj.(*volume.PolarVolume)
	if !ok || vol == nil {
		typ := volume.TypeUndefined
		if obj != nil {
			typ = obj.ObjectType()
		}
		return nil, fmt.Errorf("%w: got %s", ErrNotPolarVolume, typ)
	}

	h := engine.NewHandle(b)
	if err := h.LoadConfig(o.cfg); err != nil {
		h.Release()
		return nil, err
	}
	if err := h.SetUp(vol); err != nil {
		h.Release()
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.SessionsOpen.Inc()
	}
	return &Vol2Bird{
		handle:  h,
		vol:     vol,
		bridge:  attrs.New(h.Constants()),
		metrics: o.metrics,
		clock:   o.clock,
	}, nil
}

// Close releases the wrapper's handle reference. Calling Close on a nil or
// already closed wrapper does nothing.
func (w *Vol2Bird) Close() error {
	if w == nil || w.handle == nil {
		return nil
	}
	h := w.handle
	w.handle = nil
	w.bridge = nil
	h.Release()
	if w.metrics != nil {
		w.metrics.SessionsOpen.Dec()
	}
	return nil
}

// Closed reports whether Close has been called.
func (w *Vol2Bird) Closed() bool {
	return w == nil || w.handle == nil
}

// Volume returns the polar volume the wrapper was built from.
func (w *Vol2Bird) Volume() *volume.PolarVolume { return w.vol }

// Vol2Bird runs the engine and returns the resulting profile. The profile
// owns its data and outlives the wrapper.
func (w *Vol2Bird) Vol2Bird() (*profile.VerticalProfile, error) {
	if w.Closed() {
		return nil, engine.ErrReleased
	}

	start := w.clock.Now()
	err := w.handle.Compute()
	if w.metrics != nil {
		w.metrics.ComputeDuration.Observe(w.clock.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		w.metrics.Computes.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		return nil, err
	}

	bio, err := w.handle.Profile(profile.Bio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrComputeFailed, err)
	}
	all, err := w.handle.Profile(profile.All)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrComputeFailed, err)
	}

	meta := profile.Metadata{Source: w.vol.Source(), Date: w.vol.Date(), Time: w.vol.Time()}
	vp, err := profile.NewVerticalProfile(meta, w.handle.Constants().Settings(), bio, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrComputeFailed, err)
	}
	return vp, nil
}

// GetAttr reads a named engine constant.
func (w *Vol2Bird) GetAttr(name string) (any, error) {
	if w.Closed() {
		return nil, engine.ErrReleased
	}
	v, err := w.bridge.Get(name)
	w.countAttrError(err)
	return v, err
}

// SetAttr writes a named engine constant. The new value applies to the
// next Vol2Bird call.
func (w *Vol2Bird) SetAttr(name string, value any) error {
	if w.Closed() {
		return engine.ErrReleased
	}
	err := w.bridge.Set(name, value)
	w.countAttrError(err)
	return err
}

// Native returns the engine handle with a new counted reference held by
// the caller. The handle stays valid after the wrapper is closed, until
// release is called. Extra release calls are no-ops and never drop the
// wrapper's own reference.
func (w *Vol2Bird) Native() (h *engine.Handle, release func(), err error) {
	if w.Closed() {
		return nil, nil, engine.ErrReleased
	}
	return w.handle, w.handle.Share(), nil
}

func (w *Vol2Bird) countAttrError(err error) {
	if err == nil || w.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, attrs.ErrUnknownAttribute):
		w.metrics.AttributeErrors.WithLabelValues("unknown").Inc()
	case errors.Is(err, attrs.ErrTypeMismatch):
		w.metrics.AttributeErrors.WithLabelValues("type").Inc()
	}
}
