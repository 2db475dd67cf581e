package hospital

import "context"

type mockRepo struct {
	overview Overview
}

// NewMockRepo returns a fixed-content overview repo for unit and dev testing.
func NewMockRepo(overview Overview) *mockRepo {
	return &mockRepo{
		overview: overview,
	}
}

func (m *mockRepo) Overview(_ context.Context) (*Overview, error) {
	overview := m.overview
	return &overview, nil
}
