package visitor

import (
	"time"
)

// Capture is a logged sighting of a face that matched no enrolled employee.
type Capture struct {
	ID          string
	CompanyID   string
	KioskID     *string
	Descriptor  []float32
	SnapshotKey string
	CapturedAt  time.Time
}
