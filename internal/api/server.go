// internal/api/server.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/events"
	"github.com/xthemadgenius/SolContracts/internal/export"
	"github.com/xthemadgenius/SolContracts/internal/metrics"
	"github.com/xthemadgenius/SolContracts/internal/service"
)

type Options struct {
	CallerHeader string
	Faucet       bool
	RateLimit    float64
	RateBurst    int
	// Events, when set, is reported by /health.
	Events *events.Bus

	// MaxManualPrice caps overrides of presales created without their own cap.
	MaxManualPrice uint64
}

// Handler serves the presale and staking ledger over JSON.
type Handler struct {
	svc      *service.Service
	metrics  *metrics.Collector
	exporter *export.AllocationExporter
	logger   *zap.Logger
	opts     Options
}

func NewHandler(svc *service.Service, m *metrics.Collector, logger *zap.Logger, opts Options) *Handler {
	if opts.CallerHeader == "" {
		opts.CallerHeader = "X-Caller-Identity"
	}
	return &Handler{
		svc:      svc,
		metrics:  m,
		exporter: export.NewAllocationExporter(logger),
		logger:   logger.Named("api"),
		opts:     opts,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))
	if h.opts.RateLimit > 0 {
		r.Use(rateLimit(h.opts.RateLimit, h.opts.RateBurst))
	}

	r.GET("/health", func(c *gin.Context) {
		if h.opts.Events == nil {
			c.String(http.StatusOK, "ok")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "events": h.opts.Events.Stats()})
	})
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := r.Group("/v1")
	auth := requireCaller(h.opts.CallerHeader)

	presales := v1.Group("/presales")
	presales.GET("", h.listPresales)
	presales.GET("/:address", h.getPresale)
	presales.GET("/:address/allocations", h.exportAllocations)
	presales.GET("/:address/allocations/:contributor", h.getAllocation)
	presales.POST("", auth, h.initializePresale)
	presales.PATCH("/:address", auth, h.updateParams)
	presales.POST("/:address/pause", auth, h.setPause)
	presales.POST("/:address/price-override", auth, h.setPriceOverride)
	presales.POST("/:address/close", auth, h.closePresale)
	presales.POST("/:address/fund", auth, h.fundVault)
	presales.POST("/:address/contributions", auth, h.contribute)
	presales.POST("/:address/claims", auth, h.claim)
	presales.POST("/:address/refunds", auth, h.refund)
	presales.POST("/:address/airdrops", auth, h.distributeAirdrops)

	pools := v1.Group("/pools")
	pools.GET("", h.listPools)
	pools.GET("/:address", h.getPool)
	pools.GET("/:address/stakes/:owner", h.getStake)
	pools.POST("", auth, h.initializePool)
	pools.POST("/:address/stake", auth, h.stake)
	pools.POST("/:address/withdraw", auth, h.withdraw)
	pools.POST("/:address/claim", auth, h.claimRewards)
	pools.POST("/:address/rate", auth, h.setRewardRate)
	pools.POST("/:address/fund", auth, h.fundRewards)

	v1.GET("/balances/:asset/:account", h.balance)
	if h.opts.Faucet {
		v1.POST("/faucet", h.faucet)
	}
	return r
}

func parseKey(field, raw string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}

func paramKey(c *gin.Context, name string) (solana.PublicKey, bool) {
	key, err := parseKey(name, c.Param(name))
	if err != nil {
		badRequest(c, err)
		return solana.PublicKey{}, false
	}
	return key, true
}

// bind decodes the JSON body into req and reports a 400 on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

var statusByKind = map[service.Kind]int{
	service.KindInvalid:      http.StatusBadRequest,
	service.KindUnauthorized: http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
	service.KindInsufficient: http.StatusUnprocessableEntity,
	service.KindUnavailable:  http.StatusServiceUnavailable,
}

// fail writes err with the status of its kind. Internal errors are not echoed.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := service.Classify(err)
	status, ok := statusByKind[kind]
	if !ok {
		h.logger.Error("Internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
