package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts every endpoint on r. /metrics and /healthz are public.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", h.Authenticate)

	complaints := api.Group("/complaints")
	complaints.POST("", h.SubmitComplaint)
	complaints.GET("", h.ListComplaints)
	complaints.GET("/:id", h.GetComplaint)
	complaints.POST("/:id/responses", h.RespondToComplaint)
	complaints.POST("/:id/accept", h.AcceptResponse)
	complaints.POST("/:id/escalate", h.EscalateComplaint)
	complaints.POST("/:id/second-stage", h.SubmitSecondStage)

	api.GET("/performance/:office/:role", h.GetPerformance)
}
