package vision

import (
	"fmt"
	"log/slog"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

// Config locates the ONNX models and the runtime library.
type Config struct {
	ModelsDir          string
	LibraryPath        string
	DetectorModel      string
	LandmarkModel      string
	EmbedderModel      string
	DetectionThreshold float32
	IntraOpThreads     int
}

func DefaultConfig() Config {
	return Config{
		ModelsDir:          "models",
		DetectorModel:      "det_10g.onnx",
		LandmarkModel:      "1k3d68.onnx",
		EmbedderModel:      "face_recognition_sface.onnx",
		DetectionThreshold: 0.5,
		IntraOpThreads:     2,
	}
}

// InitRuntime loads the shared library and initializes the ONNX Runtime environment.
// Call DestroyRuntime when every Recognizer has been closed.
func InitRuntime(libraryPath string) error {
	if libraryPath == "" {
		libraryPath = defaultLibraryPath()
	}
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnx runtime (%s): %w", libraryPath, err)
	}
	slog.Info("ONNX runtime initialized", "library", libraryPath)
	return nil
}

func DestroyRuntime() {
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Warn("Failed to destroy onnx runtime", "error", err)
	}
}

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

func newSessionOptions(threads int) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	if threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}
	return opts, nil
}
