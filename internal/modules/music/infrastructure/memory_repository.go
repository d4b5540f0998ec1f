package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

// MemoryRepository is an in-memory implementation of QueueRepository.
// It stores and hands out copies, so callers never share a Queue.
type MemoryRepository struct {
	mu     sync.RWMutex
	queues map[snowflake.ID]*domain.Queue
}

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		queues: make(map[snowflake.ID]*domain.Queue),
	}
}

// Get returns a copy of the queue for the given guild, or ErrQueueNotFound.
func (r *MemoryRepository) Get(guildID snowflake.ID) (*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queue, ok := r.queues[guildID]
	if !ok {
		return nil, domain.ErrQueueNotFound
	}
	return queue.Clone(), nil
}

// Save stores a copy of the queue.
func (r *MemoryRepository) Save(queue *domain.Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queues[queue.GuildID()] = queue.Clone()
}

// Delete removes the queue for the given guild.
func (r *MemoryRepository) Delete(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.queues, guildID)
}

// Count returns the number of queues (for testing/monitoring).
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.queues)
}

// Ensure MemoryRepository implements QueueRepository.
var _ domain.QueueRepository = (*MemoryRepository)(nil)
