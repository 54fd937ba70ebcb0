package face

import "time"

// Config groups every tunable of the recognition pipeline.
type Config struct {
	EmbeddingDim      int              `yaml:"embedding_dim"`
	MatchThreshold    float64          `yaml:"match_threshold"`
	MaxFaceWidthRatio float64          `yaml:"max_face_width_ratio"`
	MinFaceWidthRatio float64          `yaml:"min_face_width_ratio"`
	Liveness          LivenessConfig   `yaml:"liveness"`
	Enrollment        EnrollmentConfig `yaml:"enrollment"`
}

type LivenessConfig struct {
	Iterations int           `yaml:"iterations"`
	Interval   time.Duration `yaml:"interval"`
	// An eye is open above EAROpen and closed below EARClosed.
	EAROpen        float64 `yaml:"ear_open"`
	EARClosed      float64 `yaml:"ear_closed"`
	MinYawMovement float64 `yaml:"min_yaw_movement"`
}

type EnrollmentConfig struct {
	Attempts    int           `yaml:"attempts"`
	Interval    time.Duration `yaml:"interval"`
	MinCaptures int           `yaml:"min_captures"`
	MaxImages   int           `yaml:"max_images"`
}

func DefaultConfig() Config {
	return Config{
		EmbeddingDim:      128,
		MatchThreshold:    0.45,
		MaxFaceWidthRatio: 0.55,
		MinFaceWidthRatio: 0.15,
		Liveness: LivenessConfig{
			Iterations:     15,
			Interval:       100 * time.Millisecond,
			EAROpen:        0.25,
			EARClosed:      0.18,
			MinYawMovement: 0.15,
		},
		Enrollment: EnrollmentConfig{
			Attempts:    5,
			Interval:    400 * time.Millisecond,
			MinCaptures: 3,
			MaxImages:   10,
		},
	}
}
