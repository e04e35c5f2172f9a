package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	models "EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	domservice "EdgeLab/internal/domain/service"
	"EdgeLab/internal/service/metrics"
	"EdgeLab/internal/service/ratelimit"
	"EdgeLab/internal/usecase"
	xhttp "EdgeLab/pkg/http"
	xlogger "EdgeLab/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictiveEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type PredictiveEchoHandler struct {
	logger  *xlogger.Logger
	trainer domservice.Trainer
	scorer  domservice.Scorer
	online  domservice.OnlineLearner
	fuser   domservice.Fuser
	candles *usecase.CandlesUseCase
	stream  *StreamHandler
	rl      *ratelimit.Limiter
}

func NewPredictiveEchoHandler(
	logger *xlogger.Logger,
	trainer domservice.Trainer,
	scorer domservice.Scorer,
	online domservice.OnlineLearner,
	fuser domservice.Fuser,
	candles *usecase.CandlesUseCase,
	stream *StreamHandler,
) *PredictiveEchoHandler {
	metrics.Register()
	return &PredictiveEchoHandler{
		logger:  logger,
		trainer: trainer,
		scorer:  scorer,
		online:  online,
		fuser:   fuser,
		candles: candles,
		stream:  stream,
		rl:      ratelimit.New(),
	}
}

func (h *PredictiveEchoHandler) allow(c echo.Context, endpoint string, capacity, refill float64) bool {
	if h.rl == nil {
		return true
	}
	if !h.rl.Allow(c.RealIP()+":"+endpoint, capacity, refill) {
		h.logger.Warn("rate limited", xlogger.String("endpoint", endpoint), xlogger.String("remote", c.RealIP()))
		return false
	}
	return true
}

func (h *PredictiveEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/train", h.Train)
	g.GET("/score", h.Score)
	g.GET("/score/pattern", h.ScorePattern)
	g.GET("/fuse", h.Fuse)
	g.GET("/online/stats", h.OnlineStats)
	g.GET("/candles", h.Candles)
	if h.stream != nil {
		g.GET("/stream", h.stream.Serve)
	}
}

func (h *PredictiveEchoHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	lookback, err := time.ParseDuration(req.Lookback)
	if err != nil || lookback <= 0 {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid lookback %q", req.Lookback))
	}
	if !h.allow(c, "train", 1, 0.1) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("training already requested recently"))
	}

	report, err := h.trainer.Train(c.Request().Context(), lookback)
	if err != nil {
		if errors.Is(err, models.ErrNoOutcomes) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no outcomes in lookback window").WithError(err))
		}
		h.logger.Error("train usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *PredictiveEchoHandler) Score(c echo.Context) error {
	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)
	if !h.allow(c, "score", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}

	res := h.scorer.Score(c.Request().Context(), req.Symbol, tf)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictiveEchoHandler) ScorePattern(c echo.Context) error {
	req := &models.PatternScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)
	if !h.allow(c, "score_pattern", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}

	res := h.scorer.ScoreWithPattern(c.Request().Context(), req.Symbol, tf, req.Pattern)
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictiveEchoHandler) Fuse(c echo.Context) error {
	req := &models.FuseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.allow(c, "fuse", 5, 2) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
	}

	res := h.fuser.Fuse(c.Request().Context(), req.Symbol, models.Regime(req.Regime), nil)
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictiveEchoHandler) OnlineStats(c echo.Context) error {
	req := &models.OnlineStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if req.Segment == "" {
		return xhttp.SuccessResponse(c, h.online.Snapshots())
	}
	key, err := ParseSegmentKey(req.Segment)
	if err != nil {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
	}
	snap, ok := h.online.Snapshot(key)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no online model for segment %q", req.Segment))
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *PredictiveEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)
	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-7*24*time.Hour))

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// ParseSegmentKey parses "asset/tf/regime" or "asset/tf/pattern/regime".
func ParseSegmentKey(s string) (models.SegmentKey, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	switch len(parts) {
	case 3:
		return models.SegmentKey{
			AssetClass: models.AssetClass(parts[0]),
			Timeframe:  parts[1],
			Regime:     models.Regime(parts[2]),
		}, nil
	case 4:
		return models.SegmentKey{
			AssetClass: models.AssetClass(parts[0]),
			Timeframe:  parts[1],
			Pattern:    parts[2],
			Regime:     models.Regime(parts[3]),
		}, nil
	default:
		return models.SegmentKey{}, fmt.Errorf("segment must be asset/tf[/pattern]/regime, got %q", s)
	}
}
