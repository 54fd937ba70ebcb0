package main

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
	faceService "github.com/cmlabs-hris/hris-face-attendance/internal/service/face"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image-or-dir>",
	Short: "Run one identification attempt on still images",
	Long: `Run the kiosk pipeline (geometry checks, liveness, matching) on a photo or on
a directory of consecutive frames. The first frame is matched and the rest
form the liveness window, which needs a blink and head movement. A single
photo is therefore always rejected as a spoof.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	images, err := loadImages(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	recognizer, release, err := e.openRecognizer()
	if err != nil {
		return err
	}
	defer release()

	store, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer e.registry.Release(companyID)

	// Recorded frames are already spaced in time.
	cfg := e.cfg.Face
	cfg.Liveness.Iterations = len(images) - 1
	cfg.Liveness.Interval = 0
	engine := faceService.NewEngine(recognizer, cfg)

	outcome, err := engine.Identify(ctx, camera.NewStillSource(images...), store.Snapshot())
	if err != nil {
		return fmt.Errorf("identification failed: %w", err)
	}
	printOutcome(outcome, store.Len())
	return nil
}

func loadImages(path string) ([]image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		images, err := camera.LoadDir(path)
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			return nil, fmt.Errorf("no images found in %s", path)
		}
		return images, nil
	}
	img, err := camera.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

func printOutcome(outcome face.Outcome, enrolled int) {
	fmt.Printf("Outcome: %s\n", outcome.Reason())
	switch o := outcome.(type) {
	case face.Verified:
		fmt.Printf("Employee:   %s\n", o.EmployeeID)
		fmt.Printf("Distance:   %.4f\n", o.Distance)
		fmt.Printf("Confidence: %.1f%%\n", o.Confidence())
	case face.Unverified:
		fmt.Printf("Nearest distance: %.4f (%d enrolled)\n", o.Distance, enrolled)
	case face.TooClose:
		fmt.Printf("Face width ratio: %.2f\n", o.WidthRatio)
	case face.TooFar:
		fmt.Printf("Face width ratio: %.2f\n", o.WidthRatio)
	case face.MultipleFaces:
		fmt.Printf("Faces: %d\n", o.Count)
	}
}
