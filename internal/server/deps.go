package server

import (
	"time"

	"github.com/kataras/golog"

	"github.com/khalildhmine/fmbq-sub002/internal/auth"
	"github.com/khalildhmine/fmbq-sub002/internal/chat"
	"github.com/khalildhmine/fmbq-sub002/internal/config"
	chatmodel "github.com/khalildhmine/fmbq-sub002/internal/datamodels/chat"
	"github.com/khalildhmine/fmbq-sub002/internal/infra/mq"
	"github.com/khalildhmine/fmbq-sub002/internal/infra/redis"
	"github.com/khalildhmine/fmbq-sub002/internal/repository/mysql"
	"github.com/khalildhmine/fmbq-sub002/internal/service"
)

// Deps 前台与后台共用的依赖集合
// 聊天 hub 必须是同一个实例：顾客连接和客服连接要落在同一张路由表上，
// 因此两个监听端口跑在同一个进程里，共享这份装配
type Deps struct {
	Cfg        *config.Config
	Logger     *golog.Logger
	TokenCache *auth.TokenCache

	ChatStore chatmodel.SessionRepository
	Hub       *chat.Hub

	Users         *service.UserService
	Products      *service.ProductService
	Catalog       *service.CatalogService
	Coupons       *service.CouponService
	Orders        *service.OrderService
	Notifications *service.NotificationService
	ChatConsole   *service.ChatConsoleService
}

// NewDeps 初始化基础设施并装配全部服务
func NewDeps(cfg *config.Config, logger *golog.Logger) *Deps {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	categoryRepo := mysql.NewCategoryRepository(db)
	brandRepo := mysql.NewBrandRepository(db)
	couponRepo := mysql.NewCouponRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	notificationRepo := mysql.NewNotificationRepository(db)
	chatStore := mysql.NewChatSessionRepository(db)

	notifier := chat.NewAMQPNotifier(mqConn, cfg.RabbitMQ.NotifyQueue)
	hub := chat.NewHub(&cfg.Chat, chatStore, redisClient, notifier, logger)

	couponSvc := service.NewCouponService(couponRepo)
	return &Deps{
		Cfg:           cfg,
		Logger:        logger,
		TokenCache:    tokenCache,
		ChatStore:     chatStore,
		Hub:           hub,
		Users:         service.NewUserService(userRepo, &cfg.JWT),
		Products:      service.NewProductService(productRepo),
		Catalog:       service.NewCatalogService(categoryRepo, brandRepo),
		Coupons:       couponSvc,
		Orders:        service.NewOrderService(orderRepo, productRepo, couponSvc),
		Notifications: service.NewNotificationService(notificationRepo),
		ChatConsole:   service.NewChatConsoleService(chatStore, hub, logger),
	}
}
