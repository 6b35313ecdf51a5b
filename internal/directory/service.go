package directory

import (
	"context"
	"time"
)

// DisplayMode is the mutually exclusive content state of the directory page.
type DisplayMode string

const (
	ModeLoading   DisplayMode = "loading"
	ModeEmpty     DisplayMode = "empty"
	ModePopulated DisplayMode = "populated"
)

// Result combines the loader state with the derived view.
type Result struct {
	Mode     DisplayMode
	Status   Status
	Error    string
	LoadedAt time.Time
	View     View
}

// Service exposes the directory to the presentation layer.
type Service struct {
	loader   *Loader
	pageSize int
}

// NewService builds a Service. A non-positive pageSize uses DefaultPageSize.
func NewService(loader *Loader, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{loader: loader, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// View derives the page for q from the current loader state.
func (s *Service) View(q Query) Result {
	return s.resultFor(s.loader.Snapshot(), q)
}

// WaitView waits for the in-flight load to settle before deriving the page.
func (s *Service) WaitView(ctx context.Context, q Query) (Result, error) {
	snap, err := s.loader.Wait(ctx)
	if err != nil {
		return Result{}, err
	}
	return s.resultFor(snap, q), nil
}

// Export returns every filtered and sorted record for q.
func (s *Service) Export(q Query) ([]User, Status) {
	snap := s.loader.Snapshot()
	return Filtered(snap.Records, q), snap.Status
}

func (s *Service) resultFor(snap Snapshot, q Query) Result {
	view := Apply(snap.Records, q, s.pageSize)
	res := Result{Status: snap.Status, Error: snap.Message, LoadedAt: snap.LoadedAt, View: view}
	switch {
	case snap.Status == StatusLoading:
		res.Mode = ModeLoading
	case len(view.Items) == 0:
		res.Mode = ModeEmpty
	default:
		res.Mode = ModePopulated
	}
	return res
}
