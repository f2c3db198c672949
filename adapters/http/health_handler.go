package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/portfolio-delivery/adapters/persistence"
)

const healthCheckTimeout = 2 * time.Second

// StorageStatus is satisfied by *persistence.Backend.
type StorageStatus interface {
	Name() string
	Check(ctx context.Context) persistence.State
}

type HealthHandler struct {
	storage StorageStatus
	cache   string
	events  string
}

// NewHealthHandler reports cache and events as the names of the configured
// integrations, "disabled" when absent.
func NewHealthHandler(storage StorageStatus, cache, events string) *HealthHandler {
	return &HealthHandler{storage: storage, cache: orDisabled(cache), events: orDisabled(events)}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	state := h.storage.Check(ctx)
	c.JSON(http.StatusOK, HealthResponse{
		OK:         true,
		ReadyState: string(state),
		HasBucket:  state == persistence.StateReady,
		Driver:     h.storage.Name(),
		Cache:      h.cache,
		Events:     h.events,
	})
}

func orDisabled(s string) string {
	if s == "" {
		return string(persistence.StateDisabled)
	}
	return s
}
