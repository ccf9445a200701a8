package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkrylov/camstream/internal/adapters/signal"
	"github.com/dkrylov/camstream/internal/config"
	"github.com/dkrylov/camstream/internal/relay"
)

// SetupRouter wires the signaling relay's HTTP surface: the WebSocket upgrade
// endpoint and a liveness probe.
func SetupRouter(cfg *config.Config, hub *relay.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ctl := signal.NewWSController(hub, cfg.Signaling)
	r.GET("/ws", ctl.HandleSignal)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	log.Info().Str("module", "adapters.http").Msg("signaling router setup")
	return r
}
