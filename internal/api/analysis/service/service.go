package analysisService

import (
	"SiteGuard/internal/api/analysis"
	analysisRepository "SiteGuard/internal/api/analysis/repository"
	"SiteGuard/internal/entity"
	"SiteGuard/pkg/detector"
	"SiteGuard/pkg/metrics"
	"context"
	"github.com/sirupsen/logrus"
)

type IAnalysisService interface {
	Analyze(ctx context.Context, image []byte) (*analysis.AnalysisResponse, error)
	AnalyzeFiltered(ctx context.Context, image []byte) (*analysis.FilteredAnalysisResponse, error)
	GetAnalysis(ctx context.Context, id int) (*entity.StoredAnalysis, error)
	StoredCount() int
}

type analysisService struct {
	log        *logrus.Logger
	detector   detector.IDetector
	repository analysisRepository.Repository
	metrics    metrics.IMetrics
}

func NewAnalysisService(
	log *logrus.Logger,
	detector detector.IDetector,
	repository analysisRepository.Repository,
	metrics metrics.IMetrics,
) IAnalysisService {
	return &analysisService{
		log:        log,
		detector:   detector,
		repository: repository,
		metrics:    metrics,
	}
}
