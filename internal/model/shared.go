package model

import (
	"context"
	"sync"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
)

// Shared loads a forest at most once per process and serves every forecast
// run from the same immutable instance. A failed load is remembered and
// returned on every call.
type Shared struct {
	path string
	load func(string) (*Forest, error)

	once   sync.Once
	forest *Forest
	err    error
}

// NewShared returns a lazily loaded model backed by the forest export at path.
func NewShared(path string) *Shared {
	return &Shared{path: path, load: LoadForest}
}

// Forest returns the loaded forest, loading it on first use.
func (s *Shared) Forest() (*Forest, error) {
	s.once.Do(func() {
		s.forest, s.err = s.load(s.path)
	})
	return s.forest, s.err
}

// Predict implements forecast.Model.
func (s *Shared) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	f, err := s.Forest()
	if err != nil {
		return 0, err
	}
	return f.Predict(ctx, row)
}

// FeatureNames implements forecast.SchemaDescriber.
func (s *Shared) FeatureNames() ([]string, error) {
	f, err := s.Forest()
	if err != nil {
		return nil, err
	}
	return f.FeatureNames()
}
