package analysisRepository

import (
	"SiteGuard/internal/api/analysis"
	"SiteGuard/internal/entity"
	contextPkg "SiteGuard/pkg/context"
	"SiteGuard/pkg/log"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// resultStore is an append-only list of analyses. The id of a record is its
// 1-based position, so assigning it and appending must happen under the
// same write lock.
type resultStore struct {
	mu      sync.RWMutex
	records []entity.StoredAnalysis
	log     *logrus.Logger
}

func (r *resultStore) Insert(ctx context.Context, renderedImage []byte, detections entity.DetectionSet) int {
	image := cloneBytes(renderedImage)
	set := cloneDetections(detections)

	r.mu.Lock()
	id := len(r.records) + 1
	r.records = append(r.records, entity.StoredAnalysis{
		ID:            id,
		RenderedImage: image,
		Detections:    set,
		CreatedAt:     time.Now(),
	})
	r.mu.Unlock()

	r.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"id":         id,
		"detections": len(set),
		"image_size": len(image),
	}).Debug("Stored analysis")

	return id
}

func (r *resultStore) Get(ctx context.Context, id int) (entity.StoredAnalysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id < 1 || id > len(r.records) {
		r.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"id":         id,
			"size":       len(r.records),
		}).Debug("Analysis id out of range")
		return entity.StoredAnalysis{}, analysis.ErrAnalysisNotFound
	}

	record := r.records[id-1]
	record.RenderedImage = cloneBytes(record.RenderedImage)
	record.Detections = cloneDetections(record.Detections)

	return record, nil
}

func (r *resultStore) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// cloneDetections copies the set including each box, so records never share
// memory with callers.
func cloneDetections(set entity.DetectionSet) entity.DetectionSet {
	out := make(entity.DetectionSet, len(set))
	for i, d := range set {
		if d.Box != nil {
			box := *d.Box
			d.Box = &box
		}
		out[i] = d
	}
	return out
}
