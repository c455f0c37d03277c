package router

import (
	"github.com/gin-gonic/gin"

	"github.com/raquezha/nuecagram/internal/http/handler/webhook"
	"github.com/raquezha/nuecagram/internal/queue"
	hook "github.com/raquezha/nuecagram/internal/webhook"
)

type RouterConfig struct {
	Validator   *hook.Validator
	Queue       *queue.Queue
	MaxBodySize int64
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name":        "nuecagram",
			"description": "GitLab webhook to Telegram notification bridge",
		})
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhookHandler := webhook.NewGitLabWebhookHandler(cfg.Validator, cfg.Queue, cfg.MaxBodySize)
	router.POST("/webhook", webhookHandler.HandleEvent)
}
