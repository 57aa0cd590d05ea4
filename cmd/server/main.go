package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/config"
	"github.com/iliyamo/mentorship-escrow/internal/database"
	"github.com/iliyamo/mentorship-escrow/internal/directory"
	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/handler"
	"github.com/iliyamo/mentorship-escrow/internal/middleware"
	"github.com/iliyamo/mentorship-escrow/internal/queue"
	"github.com/iliyamo/mentorship-escrow/internal/relay"
	"github.com/iliyamo/mentorship-escrow/internal/repository"
	"github.com/iliyamo/mentorship-escrow/internal/router"
	queue_publisher "github.com/iliyamo/mentorship-escrow/internal/service"
	"github.com/iliyamo/mentorship-escrow/internal/session"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

// custodyAddress is the reserved wallet row that holds escrowed funds while
// a booking is in flight.  It is not a user address and can never sign in.
const custodyAddress = "vault:custody"

func main() {
	_ = godotenv.Load() // a missing .env is fine; real deployments set the environment directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over MySQL.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	bookings := repository.NewBookingRepo(db)
	escrows := repository.NewEscrowRepo(db)
	acks := repository.NewAckRepo(db)
	nonces := repository.NewNonceRepo(db)
	roles := repository.NewRoleRepo(db)

	// Wallet ledger and the reserved rows settlement moves money through.
	ledger := token.NewWalletLedger(db, custodyAddress)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ledger.EnsureAccount(ctx, custodyAddress); err != nil {
		log.Fatalf("custody account: %v", err)
	}
	if err := ledger.EnsureAccount(ctx, cfg.PlatformAccount); err != nil {
		log.Fatalf("platform account: %v", err)
	}

	// Settlement core: vault, acknowledgment engine, booking manager.
	vault := escrow.NewVault(escrows, ledger, cfg.PlatformAccount, nil)
	if err := vault.Init(ctx); err != nil {
		log.Fatalf("vault init: %v", err)
	}
	engine := session.NewEngine(acks, cfg.LinkBase, nil)

	// Mentor lookups come from the local users table unless DIRECTORY_URL
	// points at a peer deployment's public directory endpoint.
	var dir directory.Client = repository.NewMentorDirectory(users)
	if cfg.DirectoryURL != "" {
		dir = directory.NewHTTPClient(cfg.DirectoryURL)
	}
	manager := booking.NewManager(bookings, vault, engine, dir, 0, nil)
	if cfg.RabbitURL != "" {
		manager.SetEventHook(queue_publisher.NewEventHook(cfg.RabbitURL))
		go func() {
			if err := queue.StartSettlementConsumer(cfg.RabbitURL); err != nil {
				log.Printf("settlement consumer stopped: %v", err)
			}
		}()
	}

	rel := relay.New(cfg.RelayAddress, cfg.RelayDomain, users, nonces, manager, nil)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	bookingH := handler.NewBookingHandler(manager)
	sessionH := handler.NewSessionHandler(engine)
	walletH := handler.NewWalletHandler(ledger, vault)
	mentorH := handler.NewMentorHandler(repository.NewMentorDirectory(users))
	relayH := handler.NewRelayHandler(rel)
	adminH := handler.NewAdminHandler(manager.Admin(), vault.Admin(), engine, roles, users, ledger)

	e := echo.New()

	// Redis-backed rate limiting (global) and response caching, enabled per
	// config.  The cache is keyed without identity, so it wraps only the
	// public GET routes and never the authenticated surface.
	rdb := config.NewRedisClient()
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled && rdb != nil {
		e.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}
	var publicMW []echo.MiddlewareFunc
	if cCfg := config.LoadCacheConfig(); cCfg.Enabled && rdb != nil {
		publicMW = append(publicMW, middleware.NewRedisCache(cCfg, rdb))
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterBookings(e, bookingH, sessionH, walletH, cfg.JWTSecret)
	router.RegisterPublic(e, mentorH, relayH, walletH, publicMW...)
	router.RegisterAdmin(e, adminH, roles, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
