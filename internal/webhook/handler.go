package webhook

import (
	"net/http"

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

// HandleModCRM accepts a ModCRM event delivery.
func (h *Handler) HandleModCRM(c *gin.Context) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(env); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	outcome, err := h.svc.Ingest(c.Request.Context(), env)
	if httpkit.HandleError(c, err) {
		return
	}

	if outcome.Duplicate {
		httpkit.OK(c, gin.H{"duplicate": true})
		return
	}
	httpkit.JSON(c, http.StatusAccepted, outcome)
}
