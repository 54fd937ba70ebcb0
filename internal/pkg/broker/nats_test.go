package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "attendance.recorded.0190a3c4-0000-7000-8000-000000000001", Subject("0190a3c4-0000-7000-8000-000000000001"))
}

func TestStreamConfig_CoversCompanySubjects(t *testing.T) {
	cfg := StreamConfig()
	assert.Equal(t, AttendanceStreamName, cfg.Name)
	assert.Equal(t, []string{"attendance.recorded.>"}, cfg.Subjects)
	assert.Positive(t, cfg.Duplicates)
}
