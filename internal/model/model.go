// Package model loads the pre-fitted scaler and k-means artifact and scores
// feature vectors against it. The artifact is produced by an offline training
// run and versioned alongside the service; this package never retrains or
// mutates it. A loaded Model is read-only and safe to share across requests.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
)

// FeatureNames is the exact column order the model was fit on.
// Permuting this silently corrupts every prediction, so the builder below is
// the only place a feature vector is assembled.
var FeatureNames = [4]string{"Income", "Age", "Total_Spending", "Recency"}

// Model is a loaded scaler + k-means artifact.
type Model struct {
	Version   string      `json:"version"`
	Features  []string    `json:"features"`
	Scaler    Scaler      `json:"scaler"`
	Centroids [][]float64 `json:"centroids"`
}

// Scaler holds the per-feature affine transform fit during training.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Load reads and validates the artifact at path. Callers should treat any
// error as fatal at startup: serving requests against a missing or
// mis-shaped model is worse than not starting.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}

	n := len(m.Features)
	if n != len(FeatureNames) {
		return nil, fmt.Errorf("model artifact %s: expected %d features, got %d",
			path, len(FeatureNames), n)
	}
	for i, name := range FeatureNames {
		if m.Features[i] != name {
			return nil, fmt.Errorf("model artifact %s: feature order mismatch, want %v got %v",
				path, FeatureNames, m.Features)
		}
	}
	if len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n {
		return nil, fmt.Errorf("model artifact %s: scaler dimensions do not match %d features", path, n)
	}
	for i, s := range m.Scaler.Scale {
		if s == 0 {
			return nil, fmt.Errorf("model artifact %s: zero scale for feature %s", path, m.Features[i])
		}
	}
	if len(m.Centroids) == 0 {
		return nil, fmt.Errorf("model artifact %s: no centroids", path)
	}
	for i, c := range m.Centroids {
		if len(c) != n {
			return nil, fmt.Errorf("model artifact %s: centroid %d has %d dimensions, want %d",
				path, i, len(c), n)
		}
	}
	return &m, nil
}

// FeatureVector assembles the four validated inputs into the fixed
// [Income, Age, Total_Spending, Recency] order.
func FeatureVector(income float64, age int, spending float64, recency int) []float64 {
	return []float64{income, float64(age), spending, float64(recency)}
}

// Scale applies the fitted affine transform to vec, returning a new slice.
func (m *Model) Scale(vec []float64) ([]float64, error) {
	if len(vec) != len(m.Features) {
		return nil, fmt.Errorf("scale: vector has %d dimensions, model expects %d", len(vec), len(m.Features))
	}
	scaled := make([]float64, len(vec))
	for i, v := range vec {
		scaled[i] = (v - m.Scaler.Mean[i]) / m.Scaler.Scale[i]
	}
	return scaled, nil
}

// PredictCluster returns the index of the centroid nearest to the scaled
// vector. Deterministic for a fixed artifact; ties resolve to the lower id.
func (m *Model) PredictCluster(scaled []float64) (int, error) {
	if len(scaled) != len(m.Features) {
		return 0, fmt.Errorf("predict: vector has %d dimensions, model expects %d", len(scaled), len(m.Features))
	}
	best := 0
	bestDist := math.Inf(1)
	for i, c := range m.Centroids {
		d := floats.Distance(scaled, c, 2)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, nil
}

// Assign runs the full scoring path: scale then nearest-centroid assignment.
func (m *Model) Assign(vec []float64) (int, error) {
	scaled, err := m.Scale(vec)
	if err != nil {
		return 0, err
	}
	return m.PredictCluster(scaled)
}
