package contracts

import "time"

// AnomalyStats describes how far the latest flow of a security sits from its trailing window
type AnomalyStats struct {
	Code      string    `json:"code"`
	Date      time.Time `json:"date"`   // date of the latest point
	Latest    int64     `json:"latest"` // lots
	Mean      float64   `json:"mean"`
	Std       float64   `json:"std"`
	ZScore    float64   `json:"z_score"`
	Anomalous bool      `json:"anomalous"`
	Basis     int       `json:"basis"` // points in the trailing window
}
