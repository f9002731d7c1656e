// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/UnendingLoop/Dehazer/internal/metrics"
	"github.com/UnendingLoop/Dehazer/internal/model"
	"github.com/UnendingLoop/Dehazer/internal/mwlogger"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

// maxRequestBody - тело запроса это один JSON с путем, больше не нужно
const maxRequestBody = 1 << 20

type DehazeHandler struct {
	service      DehazeService
	samplePrefix string
	samples      []string
}

type DehazeService interface {
	Dehaze(ctx context.Context, ref model.ImageRef) (*model.Result, error)
}

func NewDehazeHandler(svc DehazeService, samplePrefix string, sampleCount int) *DehazeHandler {
	return &DehazeHandler{
		service:      svc,
		samplePrefix: samplePrefix,
		samples:      model.SampleImages(sampleCount),
	}
}

// NewRouter собирает ginext-движок со всеми маршрутами
func NewRouter(ginMode string, h *DehazeHandler) *ginext.Engine {
	engine := ginext.New(ginMode)
	RegisterRoutes(engine.Engine, h)
	return engine
}

// RegisterRoutes wires middlewares and endpoints onto r.
func RegisterRoutes(r gin.IRouter, h *DehazeHandler) {
	r.Use(RecoveryJSON(), metrics.Track(), CORS())

	r.GET("/ping", h.SimplePinger)
	r.GET("/samples", h.Samples)
	r.POST("/dehaze", h.Dehaze)
	r.OPTIONS("/dehaze", h.Preflight)
	r.GET("/metrics", metrics.Handler())
}

func (h DehazeHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h DehazeHandler) Samples(ctx *ginext.Context) {
	ctx.JSON(200, map[string][]string{"samples": h.samples})
}

// Preflight answers CORS preflight requests that did not carry an Origin header.
func (h DehazeHandler) Preflight(ctx *ginext.Context) {
	setPermissiveCORS(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h DehazeHandler) Dehaze(ctx *ginext.Context) {
	logger := mwlogger.LoggerFromContext(ctx.Request.Context())

	// парсинг тела запроса
	var req model.DehazeRequest
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxRequestBody)
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.Warn().Err(err).Msg("Failed to parse dehaze request body")
		h.fail(ctx, fmt.Errorf("%w (invalid JSON body)", model.ErrMissingInput))
		return
	}

	// сразу превращаем строку в типизированную ссылку
	ref, err := model.ParseImageRef(req.ImagePath, h.samplePrefix)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	res, err := h.service.Dehaze(ctx.Request.Context(), ref)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	metrics.ObserveDehaze(model.ErrorClass(nil))
	ctx.JSON(200, res)
}

func (h DehazeHandler) fail(ctx *ginext.Context, err error) {
	metrics.ObserveDehaze(model.ErrorClass(err))
	// любой отказ эндпоинта - 500 с JSON-телом, класс ошибки виден в тексте
	ctx.JSON(http.StatusInternalServerError, model.FailedResult(err.Error()))
}
