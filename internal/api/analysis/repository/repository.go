package analysisRepository

import (
	"SiteGuard/internal/entity"
	"context"
	"github.com/sirupsen/logrus"
)

type Repository interface {
	Insert(ctx context.Context, renderedImage []byte, detections entity.DetectionSet) int
	Get(ctx context.Context, id int) (entity.StoredAnalysis, error)
	Size() int
}

func New(log *logrus.Logger) Repository {
	return &resultStore{
		log: log,
	}
}
