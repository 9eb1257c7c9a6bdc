package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"game-session-engine/config"
	"game-session-engine/handlers"
	"game-session-engine/middleware"
	"game-session-engine/models"
	"game-session-engine/rules"
	"game-session-engine/services"
	"game-session-engine/utils"
	"game-session-engine/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	utils.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		utils.Log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Session{},
		&models.MoveRecord{},
		&models.CreditEntry{},
	); err != nil {
		utils.Log.Fatal("failed to migrate database: ", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := runSeed(cfg, db, os.Args[2:]); err != nil {
			utils.Log.Fatal("seed failed: ", err)
		}
		return
	}

	oracle, err := rules.NewChessOracle()
	if err != nil {
		utils.Log.Fatal("failed to start rules engine: ", err)
	}

	ledger := services.NewLedgerService(db)
	accounts := services.NewAccountService(db)
	sessions := services.NewSessionService(
		db,
		oracle,
		ledger,
		services.NewMoveLog(db),
		services.NewSettlementService(db, cfg.WinAward, cfg.AbandonPenalty),
		services.Fees{
			SessionStart:       cfg.SessionStartFee,
			Move:               cfg.MoveFee,
			RefundIllegalMoves: cfg.RefundIllegalMoves,
		},
	)

	var auth []fiber.Handler
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		auth = []fiber.Handler{middleware.JWTMiddleware(cfg.JWTSecret)}
	default:
		// 🔐❗ Only Gateway requests allowed
		auth = []fiber.Handler{
			middleware.GatewayAuthMiddleware(cfg.GameServiceToken),
			middleware.UserContextMiddleware(),
		}
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	app := handlers.NewApp(handlers.Deps{
		Sessions:       sessions,
		Accounts:       accounts,
		Ledger:         ledger,
		Projections:    services.NewProjectionService(db),
		Auth:           auth,
		Metered:        limiter.Handler(),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := sessions.StartAbandonmentScheduler(cfg.AbandonSweepInterval, cfg.AbandonAfter)
	if err != nil {
		utils.Log.Fatal("failed to start scheduler: ", err)
	}
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			if n := limiter.Cleanup(30 * time.Minute); n > 0 {
				utils.Log.Debugf("🧹 dropped %d idle rate limiters", n)
			}
		}),
	)

	if cfg.Archive.Enabled() {
		store, err := utils.NewR2Store(ctx, utils.R2Options{
			AccountID:       cfg.Archive.AccountID,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			AccessKeySecret: cfg.Archive.AccessKeySecret,
			Bucket:          cfg.Archive.Bucket,
			CDNBaseURL:      cfg.Archive.CDNBaseURL,
		})
		if err != nil {
			utils.Log.Fatal("failed to initialize R2 client: ", err)
		}
		go workers.PollArchives(ctx, workers.NewSessionArchiver(db, oracle, store), cfg.Archive.Interval)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			utils.Log.Errorf("Server error: %v", err)
			stop()
		}
	}()

	utils.Log.Infof("✅ Server running on http://localhost:%s", cfg.Port)
	utils.Log.Infof("✅ Auth mode: %s", cfg.AuthMode)
	utils.Log.Infof("✅ CORS configured for origins: %v", cfg.AllowedOrigins)
	if cfg.Archive.Enabled() {
		utils.Log.Infof("✅ Game archive polling running (every %s)", cfg.Archive.Interval)
	}

	<-ctx.Done()
	utils.Log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		utils.Log.Errorf("shutdown: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		utils.Log.Errorf("scheduler shutdown: %v", err)
	}
}

// runSeed provisions an account: seed <email> [credits] [role]
func runSeed(cfg *config.Config, db *gorm.DB, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s seed <email> [credits] [player|admin]", os.Args[0])
	}
	credits := decimal.NewFromInt(10)
	if len(args) > 1 {
		c, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("credits: %w", err)
		}
		credits = c
	}
	role := models.RolePlayer
	if len(args) > 2 {
		role = models.Role(args[2])
		if role != models.RolePlayer && role != models.RoleAdmin {
			return fmt.Errorf("role must be player or admin")
		}
	}

	acc, created, err := services.NewAccountService(db).Provision(context.Background(), args[0], credits, role)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("created %s id=%s credits=%s role=%s\n", acc.Email, acc.ID, acc.Credits, acc.Role)
	} else {
		fmt.Printf("exists %s id=%s credits=%s role=%s\n", acc.Email, acc.ID, acc.Credits, acc.Role)
	}

	if cfg.AuthMode == config.AuthModeJWT {
		token, err := middleware.IssueToken(cfg.JWTSecret, acc, 30*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("token %s\n", token)
	}
	return nil
}
