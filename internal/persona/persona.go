// Package persona holds the static catalog mapping cluster ids to segment profiles.
// The catalog is fixed at compile time and never mutated, so it is safe to
// share across concurrent requests without locking.
package persona

import (
	"sort"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// UnknownName is the sentinel persona name used for cluster ids outside the catalog.
const UnknownName = "Unknown"

// catalog must stay aligned with the clusters the deployed model was fit on.
var catalog = map[int]schema.Persona{
	0: {
		Name:        "Budget Active Shoppers",
		Description: "Low-income customers who make small but frequent purchases.",
		Traits:      []string{"price sensitive", "frequent buyer"},
		Strategies:  []string{"Discount offers", "Low-cost bundles"},
	},
	1: {
		Name:        "Premium Loyalists",
		Description: "High-income, high-spending customers.",
		Traits:      []string{"high value", "brand loyal"},
		Strategies:  []string{"Loyalty rewards", "Premium offers"},
	},
	2: {
		Name:        "At-Risk Customers",
		Description: "Low spending and high inactivity.",
		Traits:      []string{"churning", "inactive"},
		Strategies:  []string{"Re-engagement campaigns"},
	},
	3: {
		Name:        "Loyal Seniors",
		Description: "Older customers with stable behavior.",
		Traits:      []string{"stable", "long tenure"},
		Strategies:  []string{"Retention rewards"},
	},
}

// Lookup resolves a cluster id to its persona. Unknown ids never fail; they
// resolve to the Unknown sentinel with an empty description and no strategies.
func Lookup(cluster int) schema.Persona {
	if p, ok := catalog[cluster]; ok {
		return p
	}
	return schema.Persona{Name: UnknownName, Strategies: []string{}}
}

// Known reports whether name is a catalog persona name (the Unknown sentinel included).
func Known(name string) bool {
	if name == UnknownName {
		return true
	}
	for _, p := range catalog {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ByName returns the persona with the given name, falling back to the
// Unknown sentinel. Used by the report handler, which receives names rather
// than cluster ids.
func ByName(name string) schema.Persona {
	for _, p := range catalog {
		if p.Name == name {
			return p
		}
	}
	return schema.Persona{Name: UnknownName, Strategies: []string{}}
}

// Clusters returns the catalog's cluster ids in ascending order.
func Clusters() []int {
	ids := make([]int, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
