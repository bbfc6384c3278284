package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/service"
)

type AccountHandler struct {
	accounts *service.AccountService
	tracker  *service.DrawdownTracker
	notional *service.NotionalAggregator
}

func NewAccountHandler(accounts *service.AccountService, tracker *service.DrawdownTracker, notional *service.NotionalAggregator) *AccountHandler {
	return &AccountHandler{accounts: accounts, tracker: tracker, notional: notional}
}

func (h *AccountHandler) Onboard(c *gin.Context) {
	var input model.CreateAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acc, err := h.accounts.Onboard(c.Request.Context(), input)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *AccountHandler) Get(c *gin.Context) {
	acc, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// UpdateEquity 接收一次权益观测，返回最新峰值与回撤
func (h *AccountHandler) UpdateEquity(c *gin.Context) {
	var input model.EquityUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tracker.UpdateEquity(c.Request.Context(), c.Param("id"), input.EquityUSD)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TodayNotional 返回账户当日已用的名义金额，供策略/UI 汇总
func (h *AccountHandler) TodayNotional(c *gin.Context) {
	total, err := h.notional.TodayNotional(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": c.Param("id"), "today_notional_usd": total})
}
