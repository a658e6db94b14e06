package repository

import (
	"context"
	"iter"
	"sync"
	"time"

	"groundedqa/internal/model"
)

type chunkKey struct {
	documentKey string
	ordinal     int
}

// MemoryChunkStore is an in-process chunk store with the same uniqueness
// rules as ChunkRepository.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	nextID uint
	rows   []model.Chunk
	index  map[chunkKey]int
}

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{index: make(map[chunkKey]int)}
}

func (s *MemoryChunkStore) InsertIfAbsent(_ context.Context, chunk *model.Chunk) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chunkKey{chunk.DocumentKey, chunk.Ordinal}
	if _, ok := s.index[key]; ok {
		return false, nil
	}
	s.nextID++
	chunk.ID = s.nextID
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	row := *chunk
	row.Vector = append([]byte(nil), chunk.Vector...)
	s.index[key] = len(s.rows)
	s.rows = append(s.rows, row)
	return true, nil
}

func (s *MemoryChunkStore) Exists(_ context.Context, documentKey string, ordinal int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[chunkKey{documentKey, ordinal}]
	return ok, nil
}

// ScanAll iterates over a snapshot taken when iteration starts.
func (s *MemoryChunkStore) ScanAll(_ context.Context) iter.Seq2[model.Chunk, error] {
	return func(yield func(model.Chunk, error) bool) {
		s.mu.RLock()
		snapshot := make([]model.Chunk, len(s.rows))
		copy(snapshot, s.rows)
		s.mu.RUnlock()

		for _, row := range snapshot {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (s *MemoryChunkStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

func (s *MemoryChunkStore) PruneFrom(_ context.Context, documentKey string, ordinal int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	var removed int64
	for _, row := range s.rows {
		if row.DocumentKey == documentKey && row.Ordinal >= ordinal {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	s.index = make(map[chunkKey]int, len(kept))
	for i, row := range kept {
		s.index[chunkKey{row.DocumentKey, row.Ordinal}] = i
	}
	return removed, nil
}
