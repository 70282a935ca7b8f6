package projector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/covu-marketplace-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockArchiveStore for testing
type MockArchiveStore struct {
	mock.Mock
}

func (m *MockArchiveStore) Archive(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockDLQPublisher for testing
type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestArchiver(t *testing.T, store ArchiveStore, dlq *MockDLQPublisher) *Archiver {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	archiver, err := NewArchiver(logger, store, dlq, 2)
	require.NoError(t, err)
	t.Cleanup(archiver.Shutdown)
	return archiver
}

func TestArchiver_HandleMessage(t *testing.T) {
	entry := ledger.NewEntry(uuid.New(), ledger.KindEscrowRelease, 9500, 0, "NGN")
	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	t.Run("ArchivesEntry", func(t *testing.T) {
		store := &MockArchiveStore{}
		dlq := &MockDLQPublisher{}
		archiver := newTestArchiver(t, store, dlq)

		store.On("Archive", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
			return e.ID == entry.ID && e.Amount == entry.Amount
		})).Return(nil).Once()

		err := archiver.HandleMessage(context.Background(), []byte(entry.AccountID.String()), payload)

		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("ArchiveFailureLeavesOffsetUncommitted", func(t *testing.T) {
		store := &MockArchiveStore{}
		dlq := &MockDLQPublisher{}
		archiver := newTestArchiver(t, store, dlq)

		store.On("Archive", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()

		err := archiver.HandleMessage(context.Background(), []byte(entry.AccountID.String()), payload)

		assert.Error(t, err)
		dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MalformedPayloadGoesToDLQ", func(t *testing.T) {
		store := &MockArchiveStore{}
		dlq := &MockDLQPublisher{}
		archiver := newTestArchiver(t, store, dlq)

		raw := []byte("not json")
		dlq.On("PublishToDLQ", mock.Anything, "key1", raw, mock.Anything).Return(nil).Once()

		err := archiver.HandleMessage(context.Background(), []byte("key1"), raw)

		assert.NoError(t, err)
		store.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything)
		dlq.AssertExpectations(t)
	})

	t.Run("DLQFailureReturnsError", func(t *testing.T) {
		store := &MockArchiveStore{}
		dlq := &MockDLQPublisher{}
		archiver := newTestArchiver(t, store, dlq)

		raw := []byte("{broken")
		dlq.On("PublishToDLQ", mock.Anything, "key2", raw, mock.Anything).Return(errors.New("broker down")).Once()

		err := archiver.HandleMessage(context.Background(), []byte("key2"), raw)

		assert.Error(t, err)
	})
}
