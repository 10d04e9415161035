package model

import "time"

// Sample is the persisted form of a water reading (time-series table).
type Sample struct {
	Area       string    `gorm:"primaryKey;size:128;not null"`
	ObservedAt time.Time `gorm:"primaryKey;not null;index"`
	TDS        float64   `gorm:"column:tds;not null"`
	PH         float64   `gorm:"column:ph;not null"`
	Ca         float64   `gorm:"column:ca;not null"`
	Mg         float64   `gorm:"column:mg;not null"`
	Turbidity  float64   `gorm:"not null"`
	Chlorine   float64   `gorm:"not null"`
	Partial    bool      `gorm:"not null;default:false"`
	Origin     string    `gorm:"size:16;not null"` // ingest or upstream
	CreatedAt  time.Time `gorm:"not null"`
}

func (Sample) TableName() string {
	return "water_samples"
}
