package worker

import (
	"context"
	"sync"

	"github.com/UnendingLoop/Dehazer/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

type mockDehazer struct {
	dehazeFn func(ctx context.Context, ref model.ImageRef) (*model.Result, error)
}

func (m *mockDehazer) Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error) {
	return m.dehazeFn(ctx, ref)
}

//----------------------------------

type mockCommitter struct {
	mu        sync.Mutex
	committed []kafkago.Message
	err       error
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msg)
	return m.err
}

func (m *mockCommitter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}
