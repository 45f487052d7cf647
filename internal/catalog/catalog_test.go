package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesWithAliasesOrder(t *testing.T) {
	idx := NewIndex([]ProductRecord{
		{PrimaryName: "칠성사이다", Aliases: []string{"사이다", "chilsung cider"}},
		{PrimaryName: "펩시콜라"},
	})

	entries := idx.NamesWithAliases()
	require.Len(t, entries, 4)

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"칠성사이다", "사이다", "chilsung cider", "펩시콜라"}, got)

	assert.Empty(t, entries[0].Alias)
	assert.Equal(t, "사이다", entries[1].Alias)
	assert.Equal(t, "칠성사이다", entries[1].Record.PrimaryName)
	assert.Equal(t, "펩시콜라", entries[3].Record.PrimaryName)
}

func TestNewIndexNeverExposesNilLists(t *testing.T) {
	idx := NewIndex([]ProductRecord{{PrimaryName: "콜라"}})
	rec := idx.All()[0]
	assert.NotNil(t, rec.Aliases)
	assert.NotNil(t, rec.Allergens)
}

func TestIndexIsIsolatedFromInput(t *testing.T) {
	in := []ProductRecord{{PrimaryName: "콜라", Aliases: []string{"coke"}}}
	idx := NewIndex(in)
	in[0].PrimaryName = "changed"
	in[0].Aliases[0] = "changed"

	rec, ok := idx.Lookup("콜라")
	require.True(t, ok)
	assert.Equal(t, []string{"coke"}, rec.Aliases)
}

func TestEmptyIndex(t *testing.T) {
	var nilIdx *Index
	assert.Equal(t, 0, nilIdx.Len())
	assert.Empty(t, nilIdx.NamesWithAliases())

	idx := NewIndex(nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.All())
}

func TestBuild(t *testing.T) {
	headers := []string{"PRDLSTNM", "alias", "imgurl1", "allergy", "other"}
	rows := [][]string{
		{"칠성사이다", "사이다, 칠성 ,", "http://img/1.jpg", "없음", "x"},
		{"", "orphan", "", "", ""},
		{"  펩시콜라 "},
	}

	idx, stats, err := Build(headers, rows, DefaultSchema(), nil)
	require.NoError(t, err)
	assert.Equal(t, BuildStats{Rows: 3, Loaded: 2, Skipped: 1}, stats)

	all := idx.All()
	require.Len(t, all, 2)
	assert.Equal(t, ProductRecord{
		PrimaryName: "칠성사이다",
		Aliases:     []string{"사이다", "칠성"},
		ImageURL:    "http://img/1.jpg",
		Allergens:   []string{"없음"},
	}, all[0])
	assert.Equal(t, "펩시콜라", all[1].PrimaryName)
	assert.Equal(t, []string{}, all[1].Aliases)
	assert.Equal(t, []string{}, all[1].Allergens)
	assert.Empty(t, all[1].ImageURL)
}

func TestBuildNoNameColumn(t *testing.T) {
	_, _, err := Build([]string{"title", "alias"}, [][]string{{"a", "b"}}, DefaultSchema(), nil)
	assert.ErrorIs(t, err, ErrNoNameColumn)
}

func TestMapRowMissingName(t *testing.T) {
	cols, err := DefaultSchema().Resolve([]string{"name"})
	require.NoError(t, err)

	_, err = cols.MapRow([]string{"   "})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = cols.MapRow(nil)
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestResolvePrefersFirstCandidate(t *testing.T) {
	cols, err := DefaultSchema().Resolve([]string{"name", "prdlstNm"})
	require.NoError(t, err)
	assert.Equal(t, 1, cols.Name)
	assert.Equal(t, -1, cols.Aliases)
}

func TestLoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [상품명]\nlist_separator: \"|\"\n"), 0o644))

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"상품명"}, schema.Name)
	assert.Equal(t, DefaultSchema().Aliases, schema.Aliases)

	idx, _, err := Build([]string{"상품명", "aliases"}, [][]string{{"콜라", "coke|cola"}}, schema, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"coke", "cola"}, idx.All()[0].Aliases)
}

func TestLoadSchemaErrors(t *testing.T) {
	_, err := LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unterminated\n"), 0o644))
	_, err = LoadSchema(path)
	assert.Error(t, err)
}

func TestIndexReturnsDetachedRecords(t *testing.T) {
	idx := NewIndex([]ProductRecord{{PrimaryName: "칠성사이다", Aliases: []string{"사이다"}, Allergens: []string{"없음"}}})

	all := idx.All()
	all[0].Aliases[0] = "변경"
	all[0].Allergens[0] = "변경"

	rec, ok := idx.Lookup("칠성사이다")
	require.True(t, ok)
	rec.Allergens[0] = "변경"

	again, _ := idx.Lookup("칠성사이다")
	assert.Equal(t, []string{"사이다"}, again.Aliases)
	assert.Equal(t, []string{"없음"}, again.Allergens)
}
