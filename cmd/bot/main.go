package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/attendance_bot/internal/app"
	"github.com/Freeeeeet/attendance_bot/internal/config"
	"github.com/Freeeeeet/attendance_bot/internal/controller"
	"github.com/Freeeeeet/attendance_bot/internal/controller/handlers"
	"github.com/Freeeeeet/attendance_bot/internal/notify"
	"github.com/Freeeeeet/attendance_bot/internal/repository"
	"github.com/Freeeeeet/attendance_bot/internal/repository/base"
	"github.com/Freeeeeet/attendance_bot/internal/service"
	"github.com/Freeeeeet/attendance_bot/internal/storage"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting attendance bot",
		zap.String("environment", cfg.Environment),
		zap.Int("token_length", len(cfg.TelegramToken)),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}

	logger.Info("Bot stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// База данных
	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	// Репозитории
	tx := base.NewRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	excuseRepo := repository.NewExcuseRepository(pool)
	appealRepo := repository.NewAppealRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	files, err := storage.NewLocalStore(cfg.StorageDir, cfg.StorageBaseURL, logger)
	if err != nil {
		return err
	}

	// Сервисы
	effects := service.NewEffectRunner(notificationRepo, auditRepo, logger)
	attachments := service.AttachmentPolicy{
		MaxBytes:     cfg.MaxUploadBytes(),
		AllowedTypes: cfg.AllowedMIMETypes,
	}
	policyService := service.NewPolicyService(policyRepo, courseRepo, effects, logger)

	svc := handlers.Services{
		Users:   service.NewUserService(userRepo, cfg.AdminTelegramIDs, logger),
		Courses: service.NewCourseService(courseRepo, userRepo, logger),
		Sessions: service.NewSessionService(tx, sessionRepo, courseRepo,
			service.NewReconciler(courseRepo, attendanceRepo), effects, logger),
		Attendance: service.NewAttendanceService(sessionRepo, courseRepo, attendanceRepo,
			effects, cfg.LateAfter, logger),
		Excuses: service.NewExcuseService(tx, excuseRepo, sessionRepo, courseRepo, attendanceRepo,
			files, attachments, effects, logger),
		Appeals: service.NewAppealService(tx, appealRepo, attendanceRepo, sessionRepo, courseRepo,
			effects, logger),
		Policies: policyService,
		Reports:  service.NewReportService(policyService, courseRepo, attendanceRepo),
	}

	// Telegram
	b, err := bot.New(cfg.TelegramToken, bot.WithErrorsHandler(func(err error) {
		logger.Error("Telegram API error", zap.Error(err))
	}))
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	botController := controller.NewBotController(b, svc, cfg.MaxUploadBytes(), logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}

	dispatcher := app.NewDispatcher(notificationRepo, notify.NewTelegramSender(b),
		cfg.NotifyPollInterval, cfg.NotifyBatchSize, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return botController.Start(gctx)
	})
	g.Go(func() error {
		dispatcher.Start(gctx)
		<-gctx.Done()
		dispatcher.Stop()
		return nil
	})

	return g.Wait()
}
