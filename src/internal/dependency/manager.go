package dependency

import (
	"pos-handoff-svc/src/clients"
	"pos-handoff-svc/src/internal/cache"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/crypto"
	"pos-handoff-svc/src/internal/loan"
	"pos-handoff-svc/src/internal/referral"
	"pos-handoff-svc/src/internal/session"
	"pos-handoff-svc/src/internal/sweeper"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Manager struct {
	Router         *gin.Engine
	Config         *config.Configuration
	Mongodb        *clients.MongoDB
	Redis          *clients.RedisClient
	RabbitMQ       *clients.RabbitMQ
	CacheService   cache.Service
	SessionRepo    session.Repository
	SessionService session.Service
	SessionHandler session.Handler
	Sweeper        *sweeper.Sweeper
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {

	cipher, err := crypto.NewCipher(cfg.Security.EncryptionKeyBytes())
	if err != nil {
		logrus.WithError(err).Panic("Failed to initialize payload cipher")
	}

	signer, err := crypto.NewTokenSigner(cfg.Security.SigningSecret,
		time.Duration(cfg.Security.CallbackTokenTTLMin)*time.Minute)
	if err != nil {
		logrus.WithError(err).Panic("Failed to initialize token signer")
	}

	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	notifier := clients.NewNotifier(cfg, rabbitMQ.Channel)

	sessionRepo := session.NewSessionRepository(mongodb, cfg.Database.SessionCollection)
	loanRepo := loan.NewLoanRepository(mongodb, cfg.Database.LoanCollection)
	referralRepo := referral.NewReferralRepository(mongodb, cfg.Database.ReferralCollection)

	sessionService := session.NewSessionService(sessionRepo, cipher, signer,
		loanRepo, referralRepo, cacheService, notifier, cfg)
	sessionHandler := session.NewHandler(cfg, sessionService)

	return &Manager{
		Router:         router,
		Config:         cfg,
		Mongodb:        mongodb,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQ,
		CacheService:   cacheService,
		SessionRepo:    sessionRepo,
		SessionService: sessionService,
		SessionHandler: sessionHandler,
		Sweeper:        sweeper.NewSweeper(sessionService, cacheService, cfg),
	}
}
