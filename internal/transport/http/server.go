package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"groundedqa/internal/bootstrap"
	rabbitmqClient "groundedqa/internal/platform/rabbitmq"
	"groundedqa/internal/transport/http/handler"
	"groundedqa/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	if app.Config.App.GinMode != "" {
		gin.SetMode(app.Config.App.GinMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(app.Logger),
		middleware.Recovery(app.Logger),
	)

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, dependencyChecks(app)...)
	router.GET("/health", healthHandler.Live)
	router.GET("/healthz", healthHandler.Ready)

	qaHandler := handler.NewQAHandler(app.Answers, app.Indexer, app.Logger)
	router.POST("/ask", qaHandler.Ask)

	var publisher handler.DocumentPublisher
	if app.Publisher != nil {
		publisher = app.Publisher
	}
	documentsHandler := handler.NewDocumentsHandler(publisher, app.Indexer, app.Logger)

	admin := router.Group("/", middleware.RequireAdmin(app.Config.Auth.AdminJWTSecret))
	admin.POST("/reindex", qaHandler.Reindex)
	admin.POST("/documents", documentsHandler.Push)

	return router
}

func dependencyChecks(app *bootstrap.App) []handler.DependencyCheck {
	checks := []handler.DependencyCheck{{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := app.Store.Count(ctx)
			return err
		},
	}}
	if app.Redis != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return app.Redis.Ping(ctx).Err()
			},
		})
	}
	if app.MQConn != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "rabbitmq",
			Check: func(ctx context.Context) error {
				return rabbitmqClient.Ping(ctx, app.MQConn)
			},
		})
	}
	return checks
}
