package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	propertydomain "github.com/smallbiznis/pgstay/internal/property/domain"
)

func (s *Server) GetOnboarding(c *gin.Context) {
	snapshot, err := s.onboardingSvc.GetStatus(c.Request.Context(), accountID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) OnboardPG(c *gin.Context) {
	var req propertydomain.PGInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	snapshot, err := s.onboardingSvc.ProgressPGCreation(c.Request.Context(), accountID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) OnboardBranch(c *gin.Context) {
	var req propertydomain.BranchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	snapshot, err := s.onboardingSvc.ProgressBranchSetup(c.Request.Context(), accountID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

type configurationRequest struct {
	SharingTypes []propertydomain.SharingType `json:"sharing_types"`
}

func (s *Server) OnboardConfiguration(c *gin.Context) {
	var req configurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	snapshot, err := s.onboardingSvc.ProgressPGConfiguration(c.Request.Context(), accountID(c), req.SharingTypes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}
