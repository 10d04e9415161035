package model

import "time"

// Treatment job statuses.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// TreatmentJob tracks a simulated treatment run for one volume of water.
type TreatmentJob struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	Area              string     `gorm:"size:128;not null" json:"area"`
	Device            string     `gorm:"size:128;not null" json:"device"`
	VolumeLiters      float64    `gorm:"not null" json:"volume_liters"`
	FlowLPerMin       float64    `gorm:"column:flow_l_per_min;not null" json:"flow_L_per_min"`
	RemovalEfficiency float64    `gorm:"not null" json:"removal_efficiency"`
	InitialHardness   float64    `gorm:"not null" json:"initial_hardness_mg_l"`
	EstimatedMinutes  *float64   `gorm:"column:estimated_minutes" json:"estimated_minutes"` // nil when flow is zero
	Status            string     `gorm:"size:16;not null;index" json:"status"`
	Progress          int        `gorm:"not null" json:"progress"` // percent
	FinalHardness     *float64   `gorm:"column:final_hardness" json:"final_hardness_mg_l"`
	Error             string     `gorm:"size:512" json:"error,omitempty"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
	StartedAt         *time.Time `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
}

// Done reports whether the job reached a terminal status.
func (j *TreatmentJob) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
