// Package control exposes the supervisor's control-plane HTTP surface,
// consumed by an external operator UI.
package control

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkrylov/camstream/internal/config"
	"github.com/dkrylov/camstream/internal/supervisor"
)

type StatusResponse struct {
	Signaling bool `json:"signaling"`
	Streamer  bool `json:"streamer"`
}

func SetupRouter(cfg *config.Config, sup *supervisor.Supervisor) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if cfg.Supervisor.StaticPath != "" {
		r.Static("/static", cfg.Supervisor.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.Supervisor.StaticPath + "/index.html")
		})
	}

	r.POST("/start", func(c *gin.Context) {
		st, err := sup.Streamer.Start()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": string(st)})
	})

	r.POST("/stop", func(c *gin.Context) {
		st := sup.Streamer.Stop()
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": string(st)})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, StatusResponse{
			Signaling: sup.Signaling.Running(),
			Streamer:  sup.Streamer.Running(),
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	log.Info().Str("module", "adapters.control").Str("static", cfg.Supervisor.StaticPath).Msg("control router setup")
	return r
}
