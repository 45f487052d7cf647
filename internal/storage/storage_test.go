package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSpreadsheetSourceXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_data.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"prdlstNm", "Alias", "imgurl1", "allergy"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"칠성사이다", "사이다,칠성", "http://img.haccp.or.kr/1.jpg", "없음"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"새우깡", "", "", "새우, 밀"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := NewSpreadsheetSource(path).Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"prdlstNm", "Alias", "imgurl1", "allergy"}, table.Headers)
	require.Len(t, table.Rows, 2)

	idx, stats, err := LoadIndex(context.Background(), NewSpreadsheetSource(path), catalog.DefaultSchema(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, []string{"새우", "밀"}, idx.All()[1].Allergens)
}

func TestSpreadsheetSourceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	content := "\ufeffname,aliases,image_url\n펩시콜라,\"pepsi, 펩시\",\n,orphan,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := NewSpreadsheetSource(path).Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "name", table.Headers[0])

	idx, stats, err := LoadIndex(context.Background(), NewSpreadsheetSource(path), catalog.DefaultSchema(), nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.BuildStats{Rows: 2, Loaded: 1, Skipped: 1}, stats)
	assert.Equal(t, []string{"pepsi", "펩시"}, idx.All()[0].Aliases)
}

func TestSpreadsheetSourceMissingFile(t *testing.T) {
	_, err := NewSpreadsheetSource(filepath.Join(t.TempDir(), "nope.xlsx")).Rows(context.Background())
	assert.Error(t, err)
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE products (product_name TEXT, alias TEXT, image TEXT, allergens TEXT, price INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products VALUES ('칠성사이다', '사이다', NULL, '없음', 1500), (NULL, 'x', NULL, NULL, 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := NewSQLiteSource(path, "products")
	require.NoError(t, err)

	table, err := src.Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"product_name", "alias", "image", "allergens", "price"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"칠성사이다", "사이다", "", "없음", "1500"}, table.Rows[0])

	idx, stats, err := LoadIndex(context.Background(), src, catalog.DefaultSchema(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, "칠성사이다", idx.All()[0].PrimaryName)
}

func TestSQLiteSourceValidation(t *testing.T) {
	_, err := NewSQLiteSource("x.db", `products"; DROP TABLE x; --`)
	assert.Error(t, err)

	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "missing.db"), "products")
	require.NoError(t, err)
	_, err = src.Rows(context.Background())
	assert.Error(t, err)
}

func TestDocumentsToTable(t *testing.T) {
	docs := []bson.D{
		{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "prdlstNm", Value: "칠성사이다"}, {Key: "Alias", Value: bson.A{"사이다", "칠성"}}},
		{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "prdlstNm", Value: "새우깡"}, {Key: "allergy", Value: "새우,밀"}, {Key: "meta", Value: bson.D{{Key: "x", Value: 1}}}},
	}

	table := documentsToTable(docs)
	assert.Equal(t, []string{"prdlstNm", "Alias", "allergy", "meta"}, table.Headers)
	assert.Equal(t, []string{"칠성사이다", "사이다,칠성", "", ""}, table.Rows[0])
	assert.Equal(t, []string{"새우깡", "", "새우,밀", ""}, table.Rows[1])
}

func TestOpenSource(t *testing.T) {
	tests := []struct {
		location string
		want     interface{}
	}{
		{"data/all_data.xlsx", &SpreadsheetSource{}},
		{"data/all_data.CSV", &SpreadsheetSource{}},
		{"catalog.sqlite", &SQLiteSource{}},
		{"mongodb", &MongoSource{}},
		{"mongodb://db:27017", &MongoSource{}},
	}
	for _, tt := range tests {
		src, err := OpenSource(SourceConfig{Location: tt.location, SQLiteTable: "products"})
		require.NoError(t, err, tt.location)
		assert.IsType(t, tt.want, src, tt.location)
	}

	_, err := OpenSource(SourceConfig{Location: "catalog.json"})
	assert.Error(t, err)
}

type fakeSource struct {
	loads int32
	fail  atomic.Bool
}

func (f *fakeSource) Describe() string { return "fake" }

func (f *fakeSource) Rows(context.Context) (*Table, error) {
	atomic.AddInt32(&f.loads, 1)
	if f.fail.Load() {
		return nil, errors.New("source down")
	}
	return &Table{Headers: []string{"name"}, Rows: [][]string{{"콜라"}}}, nil
}

func TestCatalogCacheLoadsOnce(t *testing.T) {
	src := &fakeSource{}
	cache := NewCatalogCache(src, catalog.DefaultSchema(), 0, nil)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.loads))

	stats, loadedAt := cache.Stats()
	assert.Equal(t, 1, stats.Loaded)
	assert.False(t, loadedAt.IsZero())
}

func TestCatalogCacheRefreshFallsBack(t *testing.T) {
	src := &fakeSource{}
	cache := NewCatalogCache(src, catalog.DefaultSchema(), time.Hour, nil)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	src.fail.Store(true)
	cache.Invalidate()
	again, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.loads))
}

func TestCatalogCacheInitialFailure(t *testing.T) {
	src := &fakeSource{}
	src.fail.Store(true)
	_, err := NewCatalogCache(src, catalog.DefaultSchema(), 0, nil).Get(context.Background())
	assert.Error(t, err)
}
