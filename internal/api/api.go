// Package api implements the HTTP handlers for the segmentation service.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/segmint-dev/segmint/internal/model"
	"github.com/segmint-dev/segmint/internal/persona"
	"github.com/segmint-dev/segmint/internal/report"
	"github.com/segmint-dev/segmint/internal/store"
	"github.com/segmint-dev/segmint/internal/validation"
	"github.com/segmint-dev/segmint/pkg/schema"
)

// Handler holds the loaded model and the predictions store. Both are safe
// for concurrent use; the handler itself carries no per-request state.
type Handler struct {
	Model *model.Model
	Store store.Store
}

// Predict scores one customer and appends the result to the predictions log.
//
// The request walks a fixed pipeline: decode, presence check, range
// validation, scoring, persona lookup, insert. Every failure before scoring
// is the client's (400, specific message); failures after validation are
// ours (500, generic message, detail logged).
func (h *Handler) Predict(c *gin.Context) {
	var req schema.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Covers malformed JSON and non-numeric values: a bad payload is a
		// rejection, never a crash.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	if missing := firstMissing(&req); missing != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Missing %s", missing)})
		return
	}

	income := *req.Income
	age := int(*req.Age)
	spending := *req.TotalSpending
	recency := int(*req.Recency)

	if msg, ok := validation.Check(income, age, spending, recency); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	vec := model.FeatureVector(income, age, spending, recency)
	cluster, err := h.Model.Assign(vec)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("scoring failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	// An unknown cluster id never blocks persistence; it is stored under the
	// Unknown sentinel.
	p := persona.Lookup(cluster)

	rec := schema.PredictionRecord{
		Income:        income,
		Age:           age,
		TotalSpending: spending,
		Recency:       recency,
		Cluster:       cluster,
		Persona:       p.Name,
	}
	if err := h.Store.Insert(c.Request.Context(), &rec); err != nil {
		log.WithFields(log.Fields{"error": err, "cluster": cluster}).Error("failed to persist prediction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, schema.PredictResponse{
		Cluster:     cluster,
		Persona:     p.Name,
		Description: p.Description,
		Strategy:    p.Strategies,
	})
}

// firstMissing returns the wire name of the first absent required field, in
// the model's feature order, or "" when all four are present.
func firstMissing(req *schema.PredictRequest) string {
	fields := []struct {
		name string
		val  *float64
	}{
		{"Income", req.Income},
		{"Age", req.Age},
		{"Total_Spending", req.TotalSpending},
		{"Recency", req.Recency},
	}
	for _, f := range fields {
		if f.val == nil {
			return f.name
		}
	}
	return ""
}

// History returns the 50 most recent predictions, newest first. The API-key
// gate runs in middleware before this handler is reached.
func (h *Handler) History(c *gin.Context) {
	recs, err := h.Store.ListRecent(c.Request.Context(), store.DefaultHistoryLimit)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("failed to list predictions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	entries := make([]schema.HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, schema.HistoryFromRecord(rec))
	}
	c.JSON(http.StatusOK, entries)
}

// Stats returns per-cluster prediction counts.
func (h *Handler) Stats(c *gin.Context) {
	counts, err := h.Store.CountByCluster(c.Request.Context())
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("failed to count predictions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

// DownloadReport streams a PDF report for a catalog persona. Names outside
// the catalog get a 404 rather than being echoed into a document.
func (h *Handler) DownloadReport(c *gin.Context) {
	name := c.Param("persona")
	if !persona.Known(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown persona"})
		return
	}

	pdf, err := report.PersonaPDF(persona.ByName(name))
	if err != nil {
		log.WithFields(log.Fields{"error": err, "persona": name}).Error("failed to render report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Health reports liveness plus the model version and record count.
func (h *Handler) Health(c *gin.Context) {
	n, err := h.Store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"model_version": h.Model.Version,
		"predictions":   n,
	})
}
