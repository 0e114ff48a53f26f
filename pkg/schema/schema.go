// Package schema defines universal data structures used across the Segmint platform.
package schema

import "time"

// PredictionRecord is one row of the append-only predictions log.
// ID and CreatedAt are assigned by the store at insert time; Persona is the
// catalog name for Cluster denormalized at write time and never re-derived.
type PredictionRecord struct {
	ID            int64     `json:"id"`
	Income        float64   `json:"income"`
	Age           int       `json:"age"`
	TotalSpending float64   `json:"total_spending"`
	Recency       int       `json:"recency"`
	Cluster       int       `json:"cluster"`
	Persona       string    `json:"persona"`
	CreatedAt     time.Time `json:"created_at"`
}

// Persona is a human-readable segment profile attached to a cluster id.
type Persona struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Traits      []string `json:"traits,omitempty"`
	Strategies  []string `json:"business_strategy"`
}

// PredictRequest is the body of POST /api/predict. Field names match the
// column order the model was fit on.
type PredictRequest struct {
	Income        *float64 `json:"Income"`
	Age           *float64 `json:"Age"`
	TotalSpending *float64 `json:"Total_Spending"`
	Recency       *float64 `json:"Recency"`
}

// PredictResponse is the success body of POST /api/predict.
type PredictResponse struct {
	Cluster     int      `json:"cluster"`
	Persona     string   `json:"persona"`
	Description string   `json:"description"`
	Strategy    []string `json:"strategy"`
}

// HistoryEntry is one element of the GET /api/history response.
// Note the wire names: total_spending is exposed as "spending" and
// created_at as "timestamp".
type HistoryEntry struct {
	Income    float64   `json:"income"`
	Age       int       `json:"age"`
	Spending  float64   `json:"spending"`
	Recency   int       `json:"recency"`
	Cluster   int       `json:"cluster"`
	Persona   string    `json:"persona"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryFromRecord projects a stored record onto the history wire format.
func HistoryFromRecord(r PredictionRecord) HistoryEntry {
	return HistoryEntry{
		Income:    r.Income,
		Age:       r.Age,
		Spending:  r.TotalSpending,
		Recency:   r.Recency,
		Cluster:   r.Cluster,
		Persona:   r.Persona,
		Timestamp: r.CreatedAt,
	}
}

// ClusterCount is one row of the GET /api/stats response.
type ClusterCount struct {
	Cluster int    `json:"cluster"`
	Persona string `json:"persona"`
	Count   int64  `json:"count"`
}
