package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/config"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	appHTTP "github.com/cmlabs-hris/hris-face-attendance/internal/handler/http"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/broker"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/vision"
	"github.com/cmlabs-hris/hris-face-attendance/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-face-attendance/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/hris-face-attendance/internal/service/auth"
	faceService "github.com/cmlabs-hris/hris-face-attendance/internal/service/face"
	kioskService "github.com/cmlabs-hris/hris-face-attendance/internal/service/kiosk"
	visitorService "github.com/cmlabs-hris/hris-face-attendance/internal/service/visitor"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// Snapshot storage
	var fileStorage storage.FileStorage
	uploadsDir := ""
	switch cfg.Storage.Driver {
	case "local":
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		uploadsDir = cfg.Storage.LocalPath
	case "minio":
		minioStore, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("init minio storage: %w", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure minio bucket: %w", err)
		}
		fileStorage = minioStore
	}

	// Attendance events are optional; the database stays the source of truth.
	var publisher attendance.EventPublisher
	if cfg.NATS.URL != "" {
		natsPublisher, err := broker.NewPublisher(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer natsPublisher.Close()
		if err := natsPublisher.EnsureStream(ctx); err != nil {
			return err
		}
		publisher = natsPublisher
	} else {
		slog.Warn("NATS_URL not set, attendance events will not be published")
	}

	// Face models
	visionCfg := vision.DefaultConfig()
	visionCfg.ModelsDir = cfg.Vision.ModelsDir
	visionCfg.LibraryPath = cfg.Vision.LibraryPath
	visionCfg.DetectionThreshold = cfg.Vision.DetectionThreshold
	visionCfg.IntraOpThreads = cfg.Vision.IntraOpThreads
	if err := vision.InitRuntime(visionCfg.LibraryPath); err != nil {
		return err
	}
	defer vision.DestroyRuntime()

	recognizer, err := vision.NewRecognizer(visionCfg)
	if err != nil {
		return fmt.Errorf("load face models: %w", err)
	}
	defer recognizer.Close()

	defaultLoc, err := time.LoadLocation(cfg.App.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("load default timezone: %w", err)
	}

	// Repositories
	descriptorRepo := postgresql.NewFaceDescriptorRepository(db)
	timestampRepo := postgresql.NewAttendanceTimestampRepository(db)
	summaryRepo := postgresql.NewAttendanceSummaryRepository(db)
	shiftRepo := postgresql.NewShiftAssignmentRepository(db)
	visitorRepo := postgresql.NewVisitorCaptureRepository(db)
	deviceRepo := postgresql.NewKioskDeviceRepository(db)
	transactor := postgresql.NewTransactor(db)

	// Services
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.KioskExpiration)
	hub := sse.NewHub()
	metrics.RegisterEventSubscribers(hub.TotalSubscribers)

	registry := faceService.NewStoreRegistry(descriptorRepo, cfg.Face.EmbeddingDim)
	enroller := faceService.NewEnroller(recognizer, registry, cfg.Face)
	engine := faceService.NewEngine(recognizer, cfg.Face)
	faceSvc := faceService.NewFaceService(descriptorRepo, enroller, registry, cfg.Face)

	decisionSvc := attendanceService.NewDecisionService(transactor, timestampRepo, shiftRepo, summaryRepo, publisher, defaultLoc)
	attendanceSvc := attendanceService.NewAttendanceService(timestampRepo, summaryRepo)

	visitorSvc := visitorService.NewVisitorService(visitorRepo, fileStorage, visitorService.Config{
		DedupeDistance: cfg.Visitor.DedupeDistance,
		DedupeWindow:   cfg.Visitor.DedupeWindow,
	})

	sessionCfg := kioskService.DefaultSessionConfig()
	sessionCfg.UnlockAfterNoFace = cfg.Kiosk.UnlockAfterNoFace
	sessionCfg.ManualOverrideAfter = cfg.Kiosk.ManualOverrideAfter
	sessionCfg.MaxFrameWidth = cfg.Kiosk.MaxFrameWidth
	sessionSvc := kioskService.NewSessionService(registry, engine, decisionSvc, visitorSvc, hub, JWTService, sessionCfg)

	deviceSvc := serviceAuth.NewDeviceService(deviceRepo, JWTService, sessionSvc)
	if err := deviceSvc.SyncRevocations(ctx); err != nil {
		return fmt.Errorf("load kiosk revocations: %w", err)
	}

	// Handlers
	kioskHandler := appHTTP.NewKioskHandler(deviceSvc, sessionSvc, hub, JWTService)
	faceHandler := appHTTP.NewFaceHandler(faceSvc)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	visitorHandler := appHTTP.NewVisitorHandler(visitorSvc)

	router := appHTTP.NewRouter(
		cfg.App,
		JWTService,
		kioskHandler,
		faceHandler,
		attendanceHandler,
		visitorHandler,
		uploadsDir,
	)

	scheduler := cron.NewScheduler()
	cron.RegisterHousekeeping(scheduler, visitorSvc, cfg.Visitor.Retention, registry, cfg.Visitor.RefreshInterval)
	cron.RegisterRevocationSync(scheduler, deviceSvc, cfg.Kiosk.RevocationSync)

	// Streams (SSE, frame websockets) stay open for a whole session, so
	// there is no write timeout.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down")

		// Ending the sessions closes their event streams and frame feeds.
		sessionSvc.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
