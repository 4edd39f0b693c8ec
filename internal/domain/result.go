package domain

import "fmt"

// ResultRecord is one normalized search hit. Rank is the 0-based position in the
// provider response and is the key later clicks are attributed by.
type ResultRecord struct {
	Rank        int    `json:"rank"`
	EntityID    string `json:"entity_id"`
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	TargetURL   string `json:"url"`
}

// EntityIDFor builds the provider-scoped identifier for a package release.
func EntityIDFor(name, version string) string {
	if version == "" {
		return name
	}
	return fmt.Sprintf("%s-%s", name, version)
}

// Rank assigns contiguous ranks in slice order and returns a new slice.
func Rank(records []ResultRecord) []ResultRecord {
	ranked := make([]ResultRecord, len(records))
	for i, r := range records {
		r.Rank = i
		ranked[i] = r
	}
	return ranked
}

// FindRank returns the record with the given rank.
func FindRank(records []ResultRecord, rank int) (ResultRecord, bool) {
	for _, r := range records {
		if r.Rank == rank {
			return r, true
		}
	}
	return ResultRecord{}, false
}
