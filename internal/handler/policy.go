package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/service"
)

type PolicyHandler struct {
	policies *service.PolicyService
}

func NewPolicyHandler(policies *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

func (h *PolicyHandler) GetCurrent(c *gin.Context) {
	policy, err := h.policies.GetCurrent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if policy == nil {
		// 没有策略不是 404：账户处于不受限状态
		c.JSON(http.StatusOK, gin.H{"policy": nil, "unrestricted": true})
		return
	}
	c.JSON(http.StatusOK, policy)
}

func (h *PolicyHandler) Upsert(c *gin.Context) {
	var input model.PolicyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.policies.Upsert(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}
