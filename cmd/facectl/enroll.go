package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
	faceService "github.com/cmlabs-hris/hris-face-attendance/internal/service/face"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <employee-id> <image-dir>",
	Short: "Enroll an employee from a directory of photos",
	Long: `Detect the largest face in every jpg/png file of the directory, average the
embeddings and store the result as the employee's descriptor. An existing
descriptor is replaced.

Example:
  facectl enroll --company 3f0c... 9a1e... ./captures/alice`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	employeeID, dir := args[0], args[1]
	ctx := context.Background()

	images, err := camera.LoadDir(dir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in %s", dir)
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

	enroller := faceService.NewEnroller(recognizer, e.registry, e.cfg.Face)
	descriptor, captures, err := enroller.EnrollImages(ctx, companyID, employeeID, images)
	if err != nil {
		return fmt.Errorf("enrollment failed after %d captures: %w", captures, err)
	}

	fmt.Fprintf(os.Stdout, "Enrolled %s from %d of %d images (updated %s)\n",
		descriptor.EmployeeID, captures, len(images), descriptor.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
