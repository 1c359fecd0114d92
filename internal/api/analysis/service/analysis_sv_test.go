package analysisService

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"SiteGuard/internal/api/analysis"
	analysisRepository "SiteGuard/internal/api/analysis/repository"
	"SiteGuard/internal/entity"
	"SiteGuard/pkg/detector"
	"SiteGuard/pkg/imaging"
	"SiteGuard/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	predictions []entity.Prediction
	err         error
	frames      []image.Image
}

func (m *stubModel) Predict(_ context.Context, frame detector.Frame) ([]entity.Prediction, error) {
	m.frames = append(m.frames, frame.Image)
	return m.predictions, m.err
}

// siteScenario yields Person 0.95, Hardhat 0.92, Person 0.61 at threshold
// 0.6, plus a sub-threshold vest and a non-PPE label.
func siteScenario() []entity.Prediction {
	box := entity.BoundingBox{X1: 2, Y1: 2, X2: 20, Y2: 20}
	return []entity.Prediction{
		{ClassID: 5, Confidence: 0.953, Box: box},
		{ClassID: 0, Confidence: 0.921, Box: box},
		{ClassID: 7, Confidence: 0.41, Box: box},
		{ClassID: 5, Confidence: 0.6149, Box: box},
	}
}

type fixture struct {
	service IAnalysisService
	repo    analysisRepository.Repository
	model   *stubModel
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, model *stubModel) fixture {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	repo := analysisRepository.New(l)
	adapter := detector.New(model, detector.Config{
		Threshold: detector.DefaultThreshold,
		Classes:   detector.DefaultPPEClasses,
		RenderAll: true,
	})

	return fixture{
		service: NewAnalysisService(l, adapter, repo, m),
		repo:    repo,
		model:   model,
		metrics: m,
	}
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	data, err := imaging.EncodePNG(img)
	require.NoError(t, err)
	return data
}

func opaqueImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return img
}

func TestAnalyze_PlainScenario(t *testing.T) {
	f := newFixture(t, &stubModel{predictions: siteScenario()})

	resp, err := f.service.Analyze(context.Background(), encode(t, opaqueImage()))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, []string{"Person", "Hardhat", "Person"}, resp.Labels)
	assert.Equal(t, []float64{0.95, 0.92, 0.61}, resp.Confidences)

	stored, err := f.service.GetAnalysis(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, resp.Labels, stored.Detections.Labels())
	assert.Equal(t, resp.Confidences, stored.Detections.Confidences())

	_, format, err := imaging.Decode(stored.RenderedImage)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestAnalyzeFiltered_Scenario(t *testing.T) {
	f := newFixture(t, &stubModel{predictions: siteScenario()})

	resp, err := f.service.AnalyzeFiltered(context.Background(), encode(t, opaqueImage()))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, []string{"Person", "Hardhat", "Person"}, resp.FilteredLabels)
	assert.Equal(t, []float64{0.95, 0.92, 0.61}, resp.FilteredConfidences)
	assert.Equal(t, 25.0, resp.Percentage)
	assert.Equal(t, entity.RecommendationReject, resp.Recommendation)
}

func TestAnalyzeFiltered_StoresUnfilteredSet(t *testing.T) {
	model := &stubModel{predictions: []entity.Prediction{
		{ClassID: 9, Confidence: 0.88}, // vehicle
		{ClassID: 5, Confidence: 0.9},
		{ClassID: 2, Confidence: 0.7}, // NO-Hardhat
	}}
	f := newFixture(t, model)

	resp, err := f.service.AnalyzeFiltered(context.Background(), encode(t, opaqueImage()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Person"}, resp.FilteredLabels)

	stored, err := f.service.GetAnalysis(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vehicle", "Person", "NO-Hardhat"}, stored.Detections.Labels())
}

func TestAnalyzeFiltered_DropsAlphaBeforeDetection(t *testing.T) {
	model := &stubModel{}
	f := newFixture(t, model)

	translucent := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	translucent.SetNRGBA(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	_, err := f.service.AnalyzeFiltered(context.Background(), encode(t, translucent))
	require.NoError(t, err)

	require.Len(t, model.frames, 1)
	assert.False(t, imaging.HasAlpha(model.frames[0]))
	r, g, b, _ := model.frames[0].At(3, 3).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestAnalyze_IDsIncreaseAcrossKinds(t *testing.T) {
	f := newFixture(t, &stubModel{predictions: siteScenario()})
	data := encode(t, opaqueImage())

	first, err := f.service.Analyze(context.Background(), data)
	require.NoError(t, err)
	second, err := f.service.AnalyzeFiltered(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 2, f.service.StoredCount())
}

func TestAnalyze_InvalidImage(t *testing.T) {
	model := &stubModel{}
	f := newFixture(t, model)

	_, err := f.service.Analyze(context.Background(), []byte("GIF89a but not really"))
	assert.ErrorIs(t, err, analysis.ErrInvalidImage)

	_, err = f.service.AnalyzeFiltered(context.Background(), []byte{0x00, 0x01})
	assert.ErrorIs(t, err, analysis.ErrInvalidImage)

	assert.Empty(t, model.frames)
	assert.Zero(t, f.repo.Size())
}

func TestAnalyze_DetectionFailureStoresNothing(t *testing.T) {
	f := newFixture(t, &stubModel{err: errors.New("inference timeout")})

	_, err := f.service.Analyze(context.Background(), encode(t, opaqueImage()))
	assert.ErrorIs(t, err, analysis.ErrDetectionFailure)

	_, err = f.service.AnalyzeFiltered(context.Background(), encode(t, opaqueImage()))
	assert.ErrorIs(t, err, analysis.ErrDetectionFailure)

	assert.Zero(t, f.repo.Size())
}

func TestAnalyze_UnknownClassStoresNothing(t *testing.T) {
	f := newFixture(t, &stubModel{predictions: []entity.Prediction{{ClassID: 42, Confidence: 0.99}}})

	_, err := f.service.Analyze(context.Background(), encode(t, opaqueImage()))

	assert.ErrorIs(t, err, analysis.ErrUnknownClass)
	assert.Zero(t, f.repo.Size())
}

func TestGetAnalysis_NotFound(t *testing.T) {
	f := newFixture(t, &stubModel{})

	for _, id := range []int{0, 1} {
		_, err := f.service.GetAnalysis(context.Background(), id)
		assert.ErrorIs(t, err, analysis.ErrAnalysisNotFound)
	}
}
