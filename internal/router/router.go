package router

import (
	"firebase.google.com/go/v4/messaging"
	"github.com/anonto42/nano-midea/notice/internal/cache"
	"github.com/anonto42/nano-midea/notice/internal/handlers"
	"github.com/anonto42/nano-midea/notice/internal/middleware"
	"github.com/anonto42/nano-midea/notice/internal/models"
	"github.com/anonto42/nano-midea/notice/internal/notice"
	"github.com/anonto42/nano-midea/notice/internal/push"
	"github.com/anonto42/nano-midea/notice/internal/repositories"
	"github.com/anonto42/nano-midea/notice/pkg/config"
	"github.com/anonto42/nano-midea/notice/pkg/log"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SetupRoutes migrates the schema, wires every dependency and registers all
// routes. messagingClient may be nil, which disables push. The returned
// aggregator is shared with background jobs.
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config, messagingClient *messaging.Client) (*notice.Aggregator, error) {
	err := db.Postgres.AutoMigrate(
		&models.User{},
		&models.FriendRequest{},
		&models.Comment{},
		&models.CommentTag{},
		&models.Like{},
		&models.CommentLike{},
		&models.Notice{},
		&models.NoticeSender{},
	)
	if err != nil {
		return nil, errors.Wrap(err, "auto migrate")
	}
	log.L.Info("PostgreSQL auto-migrations completed")

	e.GET("/health", handlers.HealthCheck)

	// --- Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	postRepo := repositories.NewMongoPostRepository(db.Mongo.Database(cfg.MongoDatabase))
	commentRepo := repositories.NewPostgresCommentRepository(db.Postgres)
	likeRepo := repositories.NewPostgresLikeRepository(db.Postgres)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(db.Postgres)
	noticeRepo := repositories.NewPostgresNoticeRepository(db.Postgres)

	// --- Notices ---
	aggregator := notice.NewAggregator(noticeRepo, postRepo)
	resolver := notice.NewMentionResolver(aggregator, userRepo)
	presenter := notice.NewPresenter(noticeRepo, userRepo, commentRepo)
	noticeService := notice.NewService(noticeRepo, presenter, postRepo)

	if db.Redis != nil {
		unread := cache.NewUnreadCache(db.Redis, cfg.UnreadCacheTTL)
		aggregator.AddListener(unread)
		noticeService.WithUnreadCache(unread)
		log.L.Info("unread notice cache enabled")
	}
	if messagingClient != nil {
		aggregator.AddListener(push.NewPusher(messagingClient, userRepo))
		log.L.Info("notice push enabled")
	}

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	handlers.NewUserHandler(userRepo).RegisterProfileRoutes(api)
	handlers.NewPostHandler(postRepo, commentRepo, likeRepo, aggregator, resolver).RegisterPostRoutes(api)
	handlers.NewCommentHandler(commentRepo, postRepo, aggregator, resolver).RegisterCommentRoutes(api)
	handlers.NewLikeHandler(likeRepo, postRepo, commentRepo, aggregator).RegisterLikeRoutes(api)
	handlers.NewFriendshipHandler(friendshipRepo, userRepo, aggregator).RegisterFriendshipRoutes(api)
	handlers.NewNoticeHandler(noticeService).RegisterNoticeRoutes(api)

	log.L.Info("All routes configured")
	return aggregator, nil
}
