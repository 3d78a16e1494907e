package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/trade"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type TradeHandler struct {
	manager *trade.Manager
	journal domain.SnapshotJournal
}

func NewTradeHandler(manager *trade.Manager, journal domain.SnapshotJournal) *TradeHandler {
	return &TradeHandler{manager: manager, journal: journal}
}

func NewRouter(h *TradeHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	trades := r.Group("/trades")
	{
		trades.POST("/:tradeID/open", h.OpenTrade)
		trades.GET("/:tradeID", h.GetTrade)
		trades.DELETE("/:tradeID", h.CloseTrade)
		trades.POST("/:tradeID/refresh", h.Refresh)
		trades.POST("/:tradeID/pay", h.MarkPaid)
		trades.POST("/:tradeID/release", h.Release)
		trades.POST("/:tradeID/appeal", h.Appeal)
		trades.POST("/:tradeID/cancel-appeal", h.CancelAppeal)
		trades.GET("/:tradeID/journal", h.Journal)
		trades.GET("/:tradeID/ws", h.Stream)
	}

	sync := r.Group("/sync")
	{
		sync.POST("/pause", h.PauseAll)
		sync.POST("/resume", h.ResumeAll)
	}

	return r
}

type openTradeRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

func (h *TradeHandler) OpenTrade(c *gin.Context) {
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	controller, err := h.manager.Open(req.OrderID, c.Param("tradeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tradeView(controller))
}

func (h *TradeHandler) GetTrade(c *gin.Context) {
	controller, err := h.manager.Get(c.Param("tradeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tradeView(controller))
}

func (h *TradeHandler) CloseTrade(c *gin.Context) {
	if err := h.manager.Close(c.Param("tradeID")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (h *TradeHandler) Refresh(c *gin.Context) {
	controller, err := h.manager.Get(c.Param("tradeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	controller.RefreshNow()
	c.JSON(http.StatusAccepted, gin.H{"refresh": "scheduled"})
}

func (h *TradeHandler) MarkPaid(c *gin.Context) {
	h.runAction(c, func(controller *trade.Controller) error {
		return controller.MarkPaid(c.Request.Context())
	})
}

func (h *TradeHandler) Release(c *gin.Context) {
	h.runAction(c, func(controller *trade.Controller) error {
		return controller.Release(c.Request.Context())
	})
}

type appealRequest struct {
	Reason string `json:"reason"`
}

func (h *TradeHandler) Appeal(c *gin.Context) {
	var req appealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.runAction(c, func(controller *trade.Controller) error {
		return controller.Appeal(c.Request.Context(), req.Reason)
	})
}

func (h *TradeHandler) CancelAppeal(c *gin.Context) {
	h.runAction(c, func(controller *trade.Controller) error {
		return controller.CancelAppeal(c.Request.Context())
	})
}

func (h *TradeHandler) Journal(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "journal disabled"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	snapshots, total, err := h.journal.GetTradeJournal(c.Request.Context(), c.Param("tradeID"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshots": snapshots,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

func (h *TradeHandler) PauseAll(c *gin.Context) {
	h.manager.PauseAll()
	c.JSON(http.StatusOK, gin.H{"polling": "paused"})
}

func (h *TradeHandler) ResumeAll(c *gin.Context) {
	h.manager.ResumeAll()
	c.JSON(http.StatusOK, gin.H{"polling": "resumed"})
}

func (h *TradeHandler) runAction(c *gin.Context, action func(*trade.Controller) error) {
	controller, err := h.manager.Get(c.Param("tradeID"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := action(controller); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tradeView(controller))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTradeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAppealReasonShort):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrIllegalAction),
		errors.Is(err, domain.ErrTradeClosed),
		errors.Is(err, domain.ErrAppealTooEarly),
		errors.Is(err, domain.ErrNotAppealingParty):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		switch status.Code(err) {
		case codes.NotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case codes.FailedPrecondition:
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case codes.Unavailable:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}
