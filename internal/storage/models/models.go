package models

import "time"

type QueryRecord struct {
	ID               string
	QueryText        string
	Answer           string
	EvaluationMethod string
	OverallScore     float64
	LatencyMS        int
	CreatedAt        time.Time
}