package router

import (
	"context"

	"motoexpress/config"
	"motoexpress/internal/access"
	"motoexpress/internal/handler"
	"motoexpress/internal/middleware"
	"motoexpress/internal/models"
	"motoexpress/internal/queue"
	"motoexpress/internal/repository"
	"motoexpress/internal/service"
	"motoexpress/internal/ws"
	"motoexpress/pkg/cloudinary"
	"motoexpress/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Options are the outside collaborators. Nil fields get local defaults: an inline
// publisher, the stub payment provider and in-memory rate limiting.
type Options struct {
	Cloud     cloudinary.Client
	Publisher queue.Publisher
	Provider  payment.Provider
	Redis     *redis.Client
}

// Services is the wired application, shared by the HTTP server and the worker.
type Services struct {
	Store         *repository.Store
	Gate          *access.Gate
	Hub           *ws.MapHub
	Publisher     queue.Publisher
	Auth          *service.AuthService
	Orders        *service.OrderService
	Reviews       *service.ReviewService
	Metrics       *service.MetricsService
	Location      *service.LocationService
	Notifications *service.NotificationService
	Profiles      *service.ProfileService
	Subscriptions *service.SubscriptionService

	limiter      middleware.Limiter
	loginLimiter middleware.Limiter
}

func NewServices(cfg *config.Config, db *gorm.DB, opts Options) *Services {
	store := repository.NewStore(db)
	hub := ws.NewMapHub()
	notifications := service.NewNotificationService(store, hub)

	publisher := opts.Publisher
	if publisher == nil {
		publisher = queue.NewInlinePublisher(notifications)
	}
	provider := opts.Provider
	if provider == nil {
		provider = &payment.StubProvider{BaseURL: "http://localhost:" + cfg.Server.Port}
	}
	cloud := opts.Cloud
	if cloud == nil {
		cloud, _ = cloudinary.NewClientFromParams("", "", "")
	}

	loc := service.NewLocationService(store, cfg.Location, hub)
	s := &Services{
		Store:         store,
		Gate:          access.NewGate(&cfg.JWT, store.Users),
		Hub:           hub,
		Publisher:     publisher,
		Auth:          service.NewAuthService(cfg, store, loc),
		Orders:        service.NewOrderService(store, publisher),
		Reviews:       service.NewReviewService(store),
		Metrics:       service.NewMetricsService(store),
		Location:      loc,
		Notifications: notifications,
		Profiles:      service.NewProfileService(store, cloud, cfg.Cloudinary.Folder, loc),
		Subscriptions: service.NewSubscriptionService(cfg.Payment, store, provider, notifications),
	}
	if opts.Redis != nil {
		s.limiter = middleware.NewRedisRateLimiter(opts.Redis, "rl:api", cfg.RateLimit.Requests, cfg.RateLimit.Window)
		s.loginLimiter = middleware.NewRedisRateLimiter(opts.Redis, "rl:login", cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow)
	} else {
		s.limiter = middleware.NewInMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		s.loginLimiter = middleware.NewInMemoryRateLimiter(cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow)
	}
	return s
}

func Setup(cfg *config.Config, db *gorm.DB, s *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())
	if cfg.RateLimit.Requests > 0 {
		r.Use(middleware.RateLimit(s.limiter))
	}

	authHandler := handler.NewAuthHandler(s.Auth, cfg)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, s.Auth)
	orderHandler := handler.NewOrderHandler(s.Orders, s.Reviews)
	locationHandler := handler.NewLocationHandler(s.Location)
	profileHandler := handler.NewProfileHandler(s.Profiles, s.Metrics)
	uploadHandler := handler.NewUploadHandler(s.Profiles)
	notificationHandler := handler.NewNotificationHandler(s.Notifications)
	paymentWebhookHandler := handler.NewPaymentWebhookHandler(s.Subscriptions)
	adminHandler := handler.NewAdminHandler(s.Profiles, s.Metrics)
	healthHandler := handler.NewHealthHandler(db)

	authMw := func(e access.Endpoint) gin.HandlerFunc { return middleware.Auth(s.Gate, e) }

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			login := []gin.HandlerFunc{}
			if cfg.RateLimit.LoginRequests > 0 {
				login = append(login, middleware.RateLimit(s.loginLimiter))
			}
			authGroup.POST("/register", append(login, authHandler.Register)...)
			authGroup.POST("/login", append(login, authHandler.Login)...)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMw(access.AuthLogout), authHandler.Logout)
			authGroup.GET("/me", authMw(access.AuthMe), authHandler.Me)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", authMw(access.OrderCreate), orderHandler.Create)
			orders.GET("", authMw(access.OrderList), orderHandler.List)
			orders.GET("/:id", authMw(access.OrderGet), orderHandler.Get)
			orders.PATCH("/:id", authMw(access.OrderUpdate), orderHandler.Update)
			orders.POST("/:id/assign", authMw(access.OrderAssign), orderHandler.Assign)
			orders.PATCH("/:id/assign", authMw(access.OrderRespond), orderHandler.Respond)
			orders.POST("/:id/events", authMw(access.OrderEvent), orderHandler.RecordEvent)
			orders.GET("/:id/reviews", authMw(access.ReviewList), orderHandler.ListReviews)
			orders.POST("/:id/reviews", authMw(access.ReviewCreate), orderHandler.CreateReview)
		}
		api.GET("/tracking/:code", orderHandler.Track)

		motoboys := api.Group("/motoboys")
		{
			motoboys.GET("", authMw(access.MotoboyList), profileHandler.ListMotoboys)
			motoboys.GET("/locations", authMw(access.LocationList), locationHandler.Available)
			motoboys.PATCH("/me/location", authMw(access.LocationReport), locationHandler.Report)
			motoboys.DELETE("/me/location", authMw(access.LocationClear), locationHandler.Clear)
			motoboys.POST("/me/documents", authMw(access.MotoboyDocs), uploadHandler.UploadDocument)
			motoboys.GET("/:id/stats", authMw(access.MotoboyStats), profileHandler.MotoboyStats)
		}
		api.GET("/establishments/:id/stats", authMw(access.EstablishStats), profileHandler.EstablishmentStats)

		me := api.Group("/me")
		{
			me.PATCH("/profile", authMw(access.ProfileUpdate), profileHandler.UpdateProfile)
			me.GET("/notifications", authMw(access.NotificationList), notificationHandler.List)
			me.PUT("/notifications/:id/read", authMw(access.NotificationRead), notificationHandler.MarkRead)
		}

		api.POST("/subscriptions/checkout", authMw(access.SubscriptionStart), paymentWebhookHandler.Checkout)
		api.GET("/subscriptions/payments", authMw(access.SubscriptionList), paymentWebhookHandler.History)
		api.POST("/webhooks/payment", paymentWebhookHandler.Handle)

		admin := api.Group("/admin")
		{
			admin.GET("/users", authMw(access.AdminUsers), adminHandler.ListUsers)
			admin.PATCH("/users/:id", authMw(access.AdminUserUpdate), adminHandler.UpdateUser)
			admin.GET("/stats", authMw(access.AdminStats), adminHandler.Stats)
		}
	}

	r.GET("/ws/map", ws.UpgradeMapWS(s.Gate, s.Hub, s.leaveMap))

	return r
}

// leaveMap takes a motoboy off the map once its last socket closes.
func (s *Services) leaveMap(u *models.User) {
	if err := s.Location.Clear(context.Background(), u.ID); err != nil {
		log.Warn().Err(err).Uint("user_id", u.ID).Msg("clear location on disconnect failed")
	}
}
