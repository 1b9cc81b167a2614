package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRetriever is a mock implementation of the Retriever interface for testing.
type MockRetriever struct {
	mock.Mock
}

// Search is the mock implementation of the Search method.
func (m *MockRetriever) Search(ctx context.Context, query, fromDate string) (Batch, error) {
	args := m.Called(ctx, query, fromDate)
	if batch, ok := args.Get(0).(Batch); ok {
		return batch, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPublisher is a mock implementation of the Publisher interface for testing.
type MockPublisher struct {
	mock.Mock
}

// Publish is the mock implementation of the Publish method.
func (m *MockPublisher) Publish(ctx context.Context, batch Batch, brokerRef string) (int, error) {
	args := m.Called(ctx, batch, brokerRef)
	return args.Int(0), args.Error(1)
}

// MockArchiveStore is a mock implementation of the ArchiveStore interface for testing.
type MockArchiveStore struct {
	mock.Mock
}

// Exists is the mock implementation of the Exists method.
func (m *MockArchiveStore) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// Create is the mock implementation of the Create method.
func (m *MockArchiveStore) Create(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CountToday is the mock implementation of the CountToday method.
func (m *MockArchiveStore) CountToday(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Write is the mock implementation of the Write method.
func (m *MockArchiveStore) Write(ctx context.Context, batch Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}
