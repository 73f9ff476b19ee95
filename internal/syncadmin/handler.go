package syncadmin

import (
	"net/http"
	"strconv"

	"command_center_backend/platform/httpkit"
	"command_center_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/sync/:tenant/backfill", httpkit.TenantScope(), h.Backfill)
	admin.POST("/sync/:tenant/replay", httpkit.TenantScope(), h.Replay)
	admin.GET("/sync/runs", h.ListRuns)
	admin.GET("/registry", h.Registry)
}

func (h *Handler) Backfill(c *gin.Context) {
	var req BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	result, err := h.svc.Backfill(c.Request.Context(), c.Param("tenant"), req, httpkit.GetIdentity(c).UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Replay(c *gin.Context) {
	var req ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	result, err := h.svc.Replay(c.Request.Context(), c.Param("tenant"), req, httpkit.GetIdentity(c).UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), c.Query("status"), c.Query("origin"), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"runs": runs})
}

func (h *Handler) Registry(c *gin.Context) {
	httpkit.OK(c, gin.H{"databases": h.svc.Registry()})
}
