package processor

import (
	"testing"

	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *catalog.Index {
	return catalog.NewIndex([]catalog.ProductRecord{
		{PrimaryName: "칠성사이다", Aliases: []string{"사이다"}, Allergens: []string{"없음"}},
		{PrimaryName: "펩시콜라", Aliases: []string{"pepsi"}, Allergens: []string{"없음"}},
		{PrimaryName: "코카콜라", Aliases: []string{"coca cola", "콜라"}},
		{PrimaryName: "새우깡", Allergens: []string{"새우", "밀"}},
		{PrimaryName: "감자깡", Allergens: []string{"밀"}},
	})
}

func TestMatchAliasHit(t *testing.T) {
	idx := catalog.NewIndex([]catalog.ProductRecord{
		{PrimaryName: "칠성사이다", Aliases: []string{"사이다"}, Allergens: []string{"없음"}},
	})

	results := NewMatcher(idx).Match([]string{"사이다"}, 3)
	require.Len(t, results, 1)
	assert.Equal(t, "칠성사이다", results[0].MatchedName)
	assert.Equal(t, "사이다", results[0].AliasUsed)
	assert.Equal(t, "사이다", results[0].SourceLine)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, []string{"없음"}, results[0].Allergens)
}

func TestMatchEmptyCatalog(t *testing.T) {
	m := NewMatcher(catalog.NewIndex(nil))
	results := m.Match([]string{"콜라", "사이다"}, 3)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	assert.Empty(t, NewMatcher(nil).Match([]string{"콜라"}, 3))
}

func TestMatchNoCandidates(t *testing.T) {
	assert.Empty(t, NewMatcher(testIndex()).Match(nil, 3))
	assert.Empty(t, NewMatcher(testIndex()).Match([]string{"콜라"}, 0))
}

func TestMatchSortedAndUnique(t *testing.T) {
	candidates := []string{"콜라", "123456", "펩시콜라", "새우 깡", "Coca Cola"}
	results := NewMatcher(testIndex()).Match(candidates, 100)

	require.NotEmpty(t, results)
	seen := map[string]bool{}
	for i, r := range results {
		assert.False(t, seen[r.MatchedName], "duplicate %s", r.MatchedName)
		seen[r.MatchedName] = true
		if i > 0 {
			assert.LessOrEqual(t, r.Score, results[i-1].Score)
		}
	}
	assert.Len(t, results, testIndex().Len())
}

func TestMatchTopNTruncates(t *testing.T) {
	results := NewMatcher(testIndex()).Match([]string{"콜라", "새우깡"}, 3)
	require.Len(t, results, 3)

	names := []string{results[0].MatchedName, results[1].MatchedName}
	assert.ElementsMatch(t, []string{"코카콜라", "새우깡"}, names, "exact hits come first")
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, 1.0, results[1].Score)
}

func TestMatchSelfSimilarity(t *testing.T) {
	idx := testIndex()
	m := NewMatcher(idx)
	for _, rec := range idx.All() {
		results := m.Match([]string{" " + rec.PrimaryName + " "}, 1)
		require.Len(t, results, 1)
		assert.Equal(t, 1.0, results[0].Score, rec.PrimaryName)
		assert.Equal(t, rec.PrimaryName, results[0].MatchedName)
		assert.Equal(t, rec.PrimaryName, results[0].AliasUsed)
	}
}

func TestMatchTieKeepsEnumerationOrder(t *testing.T) {
	idx := catalog.NewIndex([]catalog.ProductRecord{
		{PrimaryName: "가나"},
		{PrimaryName: "가나"},
		{PrimaryName: "다라", Aliases: []string{"가나"}},
	})
	results := NewMatcher(idx).Match([]string{"가나"}, 5)
	require.Len(t, results, 2)
	assert.Equal(t, "가나", results[0].MatchedName)
	assert.Equal(t, "가나", results[0].AliasUsed)
	assert.Equal(t, "다라", results[1].MatchedName)
	assert.Equal(t, "가나", results[1].AliasUsed)
}

func TestMatchResultsDoNotAliasCatalog(t *testing.T) {
	idx := testIndex()
	results := NewMatcher(idx).Match([]string{"새우깡"}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "새우깡", results[0].AliasUsed)

	results[0].Allergens[0] = "변경"
	results[0].Record.Allergens[1] = "변경"

	rec, ok := idx.Lookup("새우깡")
	require.True(t, ok)
	assert.Equal(t, []string{"새우", "밀"}, rec.Allergens)
}
