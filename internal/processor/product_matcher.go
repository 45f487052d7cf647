// product_matcher.go - Fuzzy matching of candidate lines against the product catalog
package processor

import (
	"sort"

	"github.com/bosocmputer/product_label_matcher/internal/catalog"
)

// MatchCandidate is one scored pairing of a candidate line with a catalog name.
type MatchCandidate struct {
	SourceLine  string                `json:"source_line"`
	MatchedName string                `json:"matched_name"`
	// AliasUsed is the catalog name that scored: the primary name or an alias
	AliasUsed   string                `json:"alias_used"`
	Score       float64               `json:"score"`
	Allergens   []string              `json:"allergens"`
	Record      catalog.ProductRecord `json:"-"`
}

// Matcher scores candidates against every primary name and alias in an index.
type Matcher struct {
	index *catalog.Index
}

// NewMatcher creates a matcher over index. A nil or empty index yields no matches.
func NewMatcher(index *catalog.Index) *Matcher {
	return &Matcher{index: index}
}

// Match scores every (candidate, catalog name) pair, sorts by score
// descending, keeps the best entry per product and returns at most topN.
// Ties keep enumeration order: candidates outer, catalog names inner.
func (m *Matcher) Match(candidates []string, topN int) []MatchCandidate {
	if topN <= 0 || len(candidates) == 0 || m.index.Len() == 0 {
		return []MatchCandidate{}
	}

	entries := m.index.NamesWithAliases()
	scored := make([]MatchCandidate, 0, len(candidates)*len(entries))

	for _, line := range candidates {
		normLine := Normalize(line)
		for _, entry := range entries {
			if entry.Name == "" {
				continue
			}
			scored = append(scored, MatchCandidate{
				SourceLine:  line,
				MatchedName: entry.Record.PrimaryName,
				AliasUsed:   entry.Name,
				Score:       Similarity(normLine, Normalize(entry.Name)),
				Allergens:   entry.Record.Allergens,
				Record:      *entry.Record,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	seen := make(map[string]struct{}, topN)
	results := make([]MatchCandidate, 0, topN)
	for _, c := range scored {
		if _, dup := seen[c.MatchedName]; dup {
			continue
		}
		seen[c.MatchedName] = struct{}{}
		c.Record = c.Record.Clone()
		c.Allergens = c.Record.Allergens
		results = append(results, c)
		if len(results) == topN {
			break
		}
	}
	return results
}
