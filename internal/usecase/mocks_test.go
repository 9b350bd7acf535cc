package usecase

import (
	"context"

	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/stretchr/testify/mock"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) fetch(method string, ctx context.Context, owner, name string) ([]domain.Observation, error) {
	args := m.MethodCalled(method, ctx, owner, name)
	// We need to handle the case where the returned slice is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Observation), args.Error(1)
}

func (m *mockFetcher) FetchStargazers(ctx context.Context, owner, name string) ([]domain.Observation, error) {
	return m.fetch("FetchStargazers", ctx, owner, name)
}

func (m *mockFetcher) FetchForks(ctx context.Context, owner, name string) ([]domain.Observation, error) {
	return m.fetch("FetchForks", ctx, owner, name)
}

func (m *mockFetcher) FetchWatchers(ctx context.Context, owner, name string) ([]domain.Observation, error) {
	return m.fetch("FetchWatchers", ctx, owner, name)
}

// mockStore is a mock implementation of the store.Store interface.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Observations(ctx context.Context, kind domain.Kind) ([]domain.Observation, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Observation), args.Error(1)
}

func (m *mockStore) AppendRun(ctx context.Context, run domain.Run, streams map[domain.Kind][]domain.Observation) (map[domain.Kind]int, error) {
	args := m.Called(ctx, run, streams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.Kind]int), args.Error(1)
}

func (m *mockStore) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Run), args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
