package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/service"
)

type TradeQuerier interface {
	GetByID(ctx context.Context, id string) (*model.Trade, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*model.Trade, error)
}

type TradeHandler struct {
	accounts  *service.AccountService
	validator *service.Validator
	executor  *service.TradeExecutor
	trades    TradeQuerier
}

func NewTradeHandler(accounts *service.AccountService, validator *service.Validator, executor *service.TradeExecutor, trades TradeQuerier) *TradeHandler {
	return &TradeHandler{accounts: accounts, validator: validator, executor: executor, trades: trades}
}

// Execute 委托入口（robo），杠杆上限 20x
func (h *TradeHandler) Execute(c *gin.Context) {
	h.execute(c, model.TradeSourceRobo)
}

// ExecuteDirect 用户直连入口，杠杆上限 100x
// 两个入口的上限刻意不同，见 config.RiskConfig
func (h *TradeHandler) ExecuteDirect(c *gin.Context) {
	h.execute(c, model.TradeSourceDirect)
}

func (h *TradeHandler) execute(c *gin.Context, source model.TradeSource) {
	account, req, ok := h.bind(c, source)
	if !ok {
		return
	}

	trade, err := h.executor.Execute(c.Request.Context(), account, req)
	if err != nil {
		// 校验阶段拒绝：没有任何记录产生
		respondErr(c, err)
		return
	}

	// failed 交易也是成功的 API 调用，由 status 字段区分
	c.JSON(http.StatusOK, trade)
}

// Validate 只跑校验管道，不产生任何记录，供调用方提交前预检
func (h *TradeHandler) Validate(c *gin.Context) {
	account, req, ok := h.bind(c, model.TradeSourceRobo)
	if !ok {
		return
	}

	if _, err := h.validator.Validate(c.Request.Context(), account, req); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

func (h *TradeHandler) Get(c *gin.Context) {
	trade, err := h.trades.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (h *TradeHandler) ListByAccount(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	trades, err := h.trades.ListByAccount(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (h *TradeHandler) bind(c *gin.Context, source model.TradeSource) (*model.Account, *model.TradeRequest, bool) {
	account, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return nil, nil, false
	}

	var req model.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	req.Source = source
	return account, &req, true
}
