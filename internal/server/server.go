package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/geraldsadya/Circles-sub000/internal/auth"
	"github.com/geraldsadya/Circles-sub000/internal/config"
	"github.com/geraldsadya/Circles-sub000/internal/events"
	"github.com/geraldsadya/Circles-sub000/internal/friends"
	"github.com/geraldsadya/Circles-sub000/internal/geofence"
	"github.com/geraldsadya/Circles-sub000/internal/location"
	"github.com/geraldsadya/Circles-sub000/internal/presence"
	"github.com/geraldsadya/Circles-sub000/internal/reward"
	"github.com/geraldsadya/Circles-sub000/internal/stream"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub

	Tracker  *presence.Tracker
	Tracking *geofence.TrackingManager

	publisher events.Publisher
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers)
	}

	hub := stream.NewHub(redisClient)
	store := location.NewStore(redisClient)
	monitor := location.NewMonitor()
	locations := location.NewService(store, monitor)
	friendsSvc := friends.NewService(db, store)
	gateway := reward.NewPostgresGateway(db)

	manager := presence.NewManager(db, gateway, publisher, hub, presence.ManagerConfig{
		PointsPerMinute:    cfg.PointsPerMinute,
		DailyHangoutCapPts: cfg.DailyHangoutCapPts,
	})
	tracker := presence.NewTracker(presence.TrackerConfig{
		Params: presence.Params{
			ProximityRadiusM: cfg.ProximityRadiusM,
			PromoteAfter:     time.Duration(cfg.PromoteAfterSec) * time.Second,
			StaleAfter:       time.Duration(cfg.StaleAfterSec) * time.Second,
		},
		MaxFixAccuracyM: cfg.MaxFixAccuracyM,
		TickInterval:    time.Duration(cfg.TrackerTickSec) * time.Second,
	}, locations, friendsSvc, manager)

	// Every ingested fix feeds proximity detection and region monitoring.
	locations.AddObserver(tracker.Observe)

	attempts := geofence.NewAttemptStore(db)
	verifier := geofence.NewVerifier(locations, attempts, gateway, publisher, hub, geofence.VerifierConfig{
		PollInterval:       time.Duration(cfg.VerifyPollSec) * time.Second,
		AccuracyThresholdM: cfg.AccuracyThresholdM,
		DailyCapPts:        cfg.DailyChallengeCapPts,
	})
	tracking := geofence.NewTrackingManager(monitor, locations, attempts, gateway, publisher, hub, geofence.TrackingConfig{
		CheckInterval:      time.Duration(cfg.BackgroundCheckSec) * time.Second,
		AccuracyThresholdM: cfg.AccuracyThresholdM,
		DailyCapPts:        cfg.DailyChallengeCapPts,
	})

	s := &Server{
		App:       app,
		Cfg:       cfg,
		DB:        db,
		Redis:     redisClient,
		Stream:    hub,
		Tracker:   tracker,
		Tracking:  tracking,
		publisher: publisher,
	}

	registerRoutes(s, locations, friendsSvc, manager, geofence.NewChallengeService(db, cfg.ChallengePoints), attempts, verifier)
	return s
}

// Start launches the detection run loops. They stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go s.Tracker.Run(ctx)
	go s.Tracking.Run(ctx)
}

// Close releases the event publisher. The fiber app and clients are owned by
// the caller.
func (s *Server) Close() {
	if kafka, ok := s.publisher.(*events.KafkaPublisher); ok {
		kafka.Close()
	}
}

func registerRoutes(s *Server, locations *location.Service, friendsSvc *friends.Service, manager *presence.Manager, challenges *geofence.ChallengeService, attempts *geofence.AttemptStore, verifier *geofence.Verifier) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	location.RegisterRoutes(s.App.Group("/location"), locations, jwtMiddleware)
	friends.RegisterRoutes(s.App.Group("/friends"), friendsSvc, jwtMiddleware)
	presence.RegisterRoutes(s.App.Group("/hangouts"), manager, s.Tracker, jwtMiddleware)
	geofence.RegisterRoutes(s.App.Group("/challenges"), challenges, attempts, verifier, s.Tracking, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
