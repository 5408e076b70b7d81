// Package store persists compliance gates.
package store

import (
	"cmp"
	"slices"

	"ascent/internal/compliance/models"
)

// sortGates orders oldest first, breaking ties by id so listings are stable.
func sortGates(gates []*models.Gate) {
	slices.SortFunc(gates, func(a, b *models.Gate) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
