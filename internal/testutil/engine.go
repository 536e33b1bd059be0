package testutil

import (
	"sync"

	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

// FakeBackend is an engine.Backend that serves ProfileRows data and counts
// lifecycle calls.
type FakeBackend struct {
	// Rows is the number of height bins each session produces.
	Rows int
	// SetUpErr makes SetUp fail.
	SetUpErr error
	// NilSession makes SetUp return neither a session nor an error.
	NilSession bool
	// ComputeErr makes Compute fail.
	ComputeErr error

	mu            sync.Mutex
	setUps        int
	computes      int
	tearDowns     int
	lastConstants engine.Constants
}

// NewFakeBackend returns a backend producing rows height bins.
func NewFakeBackend(rows int) *FakeBackend {
	return &FakeBackend{Rows: rows}
}

func (b *FakeBackend) SetUp(vol *volume.PolarVolume, c engine.Constants) (engine.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setUps++
	if b.SetUpErr != nil {
		return nil, b.SetUpErr
	}
	if b.NilSession {
		return nil, nil
	}
	return &fakeSession{b: b, rows: b.Rows}, nil
}

// SetUps returns the number of SetUp calls.
func (b *FakeBackend) SetUps() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setUps
}

// Computes returns the number of Compute calls.
func (b *FakeBackend) Computes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.computes
}

// TearDowns returns the number of TearDown calls across all sessions.
func (b *FakeBackend) TearDowns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tearDowns
}

// LastConstants returns the constants passed to the most recent Compute.
func (b *FakeBackend) LastConstants() engine.Constants {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastConstants
}

type fakeSession struct {
	b        *FakeBackend
	rows     int
	bio, all []float64
}

func (s *fakeSession) Compute(c engine.Constants) error {
	s.b.mu.Lock()
	s.b.computes++
	s.b.lastConstants = c
	err := s.b.ComputeErr
	s.b.mu.Unlock()
	if err != nil {
		return err
	}
	s.bio = ProfileData(s.rows, profile.Bio)
	s.all = ProfileData(s.rows, profile.All)
	return nil
}

func (s *fakeSession) RowCount() int { return s.rows }
func (s *fakeSession) ColCount() int { return profile.NColumns }

func (s *fakeSession) Profile(variantID int) []float64 {
	switch profile.Variant(variantID) {
	case profile.Bio:
		return s.bio
	case profile.All:
		return s.all
	}
	return nil
}

func (s *fakeSession) TearDown() {
	s.b.mu.Lock()
	s.b.tearDowns++
	s.b.mu.Unlock()
	s.bio, s.all = nil, nil
}
