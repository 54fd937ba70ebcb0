package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cmlabs-hris/hris-face-attendance/internal/config"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/vision"
	"github.com/cmlabs-hris/hris-face-attendance/internal/repository/postgresql"
	faceService "github.com/cmlabs-hris/hris-face-attendance/internal/service/face"
	"github.com/spf13/cobra"
)

var companyID string

var rootCmd = &cobra.Command{
	Use:   "facectl",
	Short: "Operator tool for the face attendance service",
	Long: `facectl manages enrolled face descriptors directly against the database.
It reads the same environment (.env, FACE_TUNING_FILE) as the API server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&companyID, "company", "", "Company ID (required)")
}

// env bundles what every command needs. close must be called once.
type env struct {
	cfg      *config.Config
	db       *database.DB
	registry *faceService.StoreRegistry
}

func openEnv() (*env, error) {
	if companyID == "" {
		return nil, fmt.Errorf("--company is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	repo := postgresql.NewFaceDescriptorRepository(db)
	return &env{
		cfg:      cfg,
		db:       db,
		registry: faceService.NewStoreRegistry(repo, cfg.Face.EmbeddingDim),
	}, nil
}

func (e *env) close() {
	e.db.Close()
}

// openRecognizer initializes the ONNX runtime and loads the models.
// The returned func releases both.
func (e *env) openRecognizer() (*vision.Recognizer, func(), error) {
	visionCfg := vision.DefaultConfig()
	visionCfg.ModelsDir = e.cfg.Vision.ModelsDir
	visionCfg.LibraryPath = e.cfg.Vision.LibraryPath
	visionCfg.DetectionThreshold = e.cfg.Vision.DetectionThreshold
	visionCfg.IntraOpThreads = e.cfg.Vision.IntraOpThreads

	if err := vision.InitRuntime(visionCfg.LibraryPath); err != nil {
		return nil, nil, err
	}
	recognizer, err := vision.NewRecognizer(visionCfg)
	if err != nil {
		vision.DestroyRuntime()
		return nil, nil, fmt.Errorf("failed to load face models: %w", err)
	}
	return recognizer, func() {
		recognizer.Close()
		vision.DestroyRuntime()
	}, nil
}

// acquire loads the company's descriptor store.
func (e *env) acquire(ctx context.Context) (*faceService.DescriptorStore, error) {
	store, err := e.registry.Acquire(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors: %w", err)
	}
	return store, nil
}
