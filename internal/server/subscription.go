package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
)

func (s *Server) GetSubscription(c *gin.Context) {
	snapshot, err := s.subscriptionSvc.Get(c.Request.Context(), accountID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) ActivateFreeTrial(c *gin.Context) {
	result, err := s.subscriptionSvc.ActivateFreeTrial(c.Request.Context(), accountID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) Subscribe(c *gin.Context) {
	var req subscriptiondomain.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.AccountID = accountID(c)
	req.PlanID = strings.TrimSpace(req.PlanID)
	req.BillingCycle = strings.TrimSpace(req.BillingCycle)

	snapshot, err := s.subscriptionSvc.Subscribe(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) AddBeds(c *gin.Context) {
	s.topUp(c, s.subscriptionSvc.AddBeds)
}

func (s *Server) AddBranches(c *gin.Context) {
	s.topUp(c, s.subscriptionSvc.AddBranches)
}

func (s *Server) topUp(c *gin.Context, apply func(ctx context.Context, req subscriptiondomain.TopUpRequest) (subscriptiondomain.CustomPricing, error)) {
	var req subscriptiondomain.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.AccountID = accountID(c)

	pricing, err := apply(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pricing})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	snapshot, err := s.subscriptionSvc.Cancel(c.Request.Context(), accountID(c), strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) RecordUsage(c *gin.Context) {
	var req subscriptiondomain.UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.AccountID = accountID(c)

	snapshot, err := s.subscriptionSvc.RecordUsage(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) CheckCapacity(c *gin.Context) {
	var query struct {
		Resource string `form:"resource"`
		Count    string `form:"count"`
		Module   string `form:"module"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resource, ok := subscriptiondomain.ParseResource(query.Resource)
	if !ok {
		AbortWithError(c, newValidationError("resource", "invalid_resource", "unknown resource"))
		return
	}
	count := 0
	if raw := strings.TrimSpace(query.Count); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("count", "invalid_count", "invalid count"))
			return
		}
		count = parsed
	}

	result, err := s.subscriptionSvc.CheckCapacity(c.Request.Context(), subscriptiondomain.CapacityRequest{
		AccountID:      accountID(c),
		Resource:       resource,
		RequestedCount: count,
		Module:         strings.TrimSpace(query.Module),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
