package analysisHandler

import (
	analysisService "SiteGuard/internal/api/analysis/service"
	"SiteGuard/internal/middleware"
	"SiteGuard/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type AnalysisHandler struct {
	log             *logrus.Logger
	middleware      middleware.Middleware
	analysisService analysisService.IAnalysisService
	utils           utils.IUtils
}

func New(
	log *logrus.Logger,
	middleware middleware.Middleware,
	as analysisService.IAnalysisService,
	utils utils.IUtils,
) *AnalysisHandler {
	return &AnalysisHandler{
		log:             log,
		middleware:      middleware,
		analysisService: as,
		utils:           utils,
	}
}

func (h *AnalysisHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	analyses := srv.Group("/analyses")
	analyses.Post("", h.middleware.NewRateLimiter, h.Analyze)
	analyses.Post("/filtered", h.middleware.NewRateLimiter, h.AnalyzeFiltered)

	analyses.Use("/ws", h.middleware.NewRateLimiter, wsMiddleware)
	analyses.Get("/ws", websocket.New(h.handleStream))

	analyses.Get("/:id", h.GetAnalysis)
}
