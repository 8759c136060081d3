// Package reconcile merges the primary store's and the legacy system's view of a company.
//
// All functions are pure and safe for concurrent use.
package reconcile

import (
	"sort"

	"orgprofile/internal/company/models"
	dErrors "orgprofile/pkg/domain-errors"
)

// Source identifies which store produced a reconciled record.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceLegacy  Source = "legacy"
)

// Latest reconciles the two records held for code. Either may be nil; both nil is NotFound.
//
// The record with the strictly later modification time wins every typed field. A record
// without a timestamp loses to one with a timestamp; a tie goes to the legacy record.
// Company size is merged per field: the winner's size when set, else the loser's.
func Latest(code string, primary, legacy *models.Company) (models.Company, Source, error) {
	switch {
	case primary == nil && legacy == nil:
		return models.Company{}, "", dErrors.NotFound(code)
	case legacy == nil:
		out := *primary
		out.LastWrittenByPrimary = true
		return out, SourcePrimary, nil
	case primary == nil:
		out := *legacy
		out.LastWrittenByPrimary = false
		return out, SourceLegacy, nil
	}

	winner, loser, src := *legacy, primary, SourceLegacy
	if newer(primary, legacy) {
		winner, loser, src = *primary, legacy, SourcePrimary
	}
	if winner.CompanySize == nil {
		winner.CompanySize = loser.CompanySize
	}
	winner.LastWrittenByPrimary = src == SourcePrimary
	return winner, src, nil
}

// newer reports whether a was modified strictly after b.
func newer(a, b *models.Company) bool {
	at, bt := a.LastModifiedAt(), b.LastModifiedAt()
	switch {
	case at == nil:
		return false
	case bt == nil:
		return true
	default:
		return at.After(*bt)
	}
}

// Many reconciles batches fetched from both stores, grouping by code.
// Codes present in one batch only pass through. The result is ordered by code.
func Many(primary, legacy []models.Company) []models.Company {
	type pair struct{ primary, legacy *models.Company }
	groups := make(map[string]*pair, len(primary)+len(legacy))
	group := func(code string) *pair {
		g, ok := groups[code]
		if !ok {
			g = &pair{}
			groups[code] = g
		}
		return g
	}
	for i := range primary {
		group(primary[i].Code).primary = &primary[i]
	}
	for i := range legacy {
		group(legacy[i].Code).legacy = &legacy[i]
	}

	out := make([]models.Company, 0, len(groups))
	for code, g := range groups {
		merged, _, err := Latest(code, g.primary, g.legacy)
		if err != nil {
			continue
		}
		out = append(out, merged)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Missing returns the requested codes absent from found, in request order.
func Missing(requested []string, found []models.Company) []string {
	have := make(map[string]struct{}, len(found))
	for _, c := range found {
		have[c.Code] = struct{}{}
	}
	var missing []string
	for _, code := range requested {
		if _, ok := have[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing
}

// Union overlays the fields present in incoming onto existing, both from the same store.
// Fields incoming leaves empty keep their stored value. Provenance is taken from existing.
func Union(existing, incoming models.Company) models.Company {
	merged := models.Flatten(&existing)
	for key, value := range models.Flatten(&incoming) {
		if value != "" {
			merged[key] = value
		}
	}
	out := models.Unflatten(existing.Code, merged)
	out.LastWrittenByPrimary = existing.LastWrittenByPrimary
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = existing.UpdatedAt
	return out
}
