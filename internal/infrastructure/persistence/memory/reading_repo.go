// Package memory provides in-process implementations of the reading ports.
// They back the server when Postgres or Redis are not configured and are
// used by tests across the application layer.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/stresssense/stress-sense/internal/domain/reading"
)

// ReadingRepository implements reading.Repository in memory.
type ReadingRepository struct {
	mu       sync.RWMutex
	byDevice map[reading.DeviceID][]*reading.Reading
}

// NewReadingRepository creates an empty repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{
		byDevice: make(map[reading.DeviceID][]*reading.Reading),
	}
}

// Save stores a copy of the reading.
func (r *ReadingRepository) Save(ctx context.Context, rec *reading.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *rec
	cp.Apps = append([]reading.AppUsage(nil), rec.Apps...)

	r.mu.Lock()
	r.byDevice[rec.DeviceID] = append(r.byDevice[rec.DeviceID], &cp)
	r.mu.Unlock()
	return nil
}

// ListByDevice returns up to limit readings, newest first.
func (r *ReadingRepository) ListByDevice(ctx context.Context, deviceID reading.DeviceID, limit int) ([]*reading.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = reading.NormalizeLimit(limit)

	r.mu.RLock()
	src := r.byDevice[deviceID]
	list := make([]*reading.Reading, len(src))
	copy(list, src)
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].RecordedAt.After(list[j].RecordedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}

	out := make([]*reading.Reading, len(list))
	for i, rec := range list {
		cp := *rec
		cp.Apps = append([]reading.AppUsage(nil), rec.Apps...)
		out[i] = &cp
	}
	return out, nil
}

// Devices returns known devices sorted by id.
func (r *ReadingRepository) Devices(ctx context.Context) ([]reading.DeviceID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]reading.DeviceID, 0, len(r.byDevice))
	for id := range r.byDevice {
		out = append(out, id)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

var _ reading.Repository = (*ReadingRepository)(nil)
