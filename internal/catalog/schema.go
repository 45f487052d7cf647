// schema.go - Column mapping from heterogeneous catalog sources to ProductRecord

package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoNameColumn means none of the schema's name columns exist in the source.
	ErrNoNameColumn = errors.New("catalog: no product name column")
	// ErrMissingName means a row has an empty product name.
	ErrMissingName = errors.New("catalog: row has no product name")
)

// Schema lists the accepted column names for each ProductRecord field.
// Columns are matched case-insensitively after trimming; the first
// candidate present in the header wins.
type Schema struct {
	Name          []string `yaml:"name"`
	Aliases       []string `yaml:"aliases"`
	Image         []string `yaml:"image"`
	Allergens     []string `yaml:"allergens"`
	ListSeparator string   `yaml:"list_separator"`
}

// DefaultSchema matches the public food-safety product export and common
// hand-made spreadsheets.
func DefaultSchema() Schema {
	return Schema{
		Name:          []string{"prdlstNm", "name", "product_name", "제품명"},
		Aliases:       []string{"Alias", "aliases", "alias"},
		Image:         []string{"imgurl1", "image_url", "imageUrl", "image"},
		Allergens:     []string{"allergy", "allergens"},
		ListSeparator: ",",
	}
}

// LoadSchema reads a YAML schema file. Fields left out of the file keep
// their DefaultSchema values.
func LoadSchema(path string) (Schema, error) {
	schema := DefaultSchema()
	data, err := os.ReadFile(path)
	if err != nil {
		return schema, fmt.Errorf("read schema file: %w", err)
	}

	var override Schema
	if err := yaml.Unmarshal(data, &override); err != nil {
		return schema, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	if len(override.Name) > 0 {
		schema.Name = override.Name
	}
	if len(override.Aliases) > 0 {
		schema.Aliases = override.Aliases
	}
	if len(override.Image) > 0 {
		schema.Image = override.Image
	}
	if len(override.Allergens) > 0 {
		schema.Allergens = override.Allergens
	}
	if override.ListSeparator != "" {
		schema.ListSeparator = override.ListSeparator
	}
	return schema, nil
}

// ColumnMap holds header positions for each field; -1 means absent.
type ColumnMap struct {
	Name      int
	Aliases   int
	Image     int
	Allergens int
	separator string
}

// Resolve finds the schema columns in a header row.
func (s Schema) Resolve(headers []string) (ColumnMap, error) {
	sep := s.ListSeparator
	if sep == "" {
		sep = ","
	}
	m := ColumnMap{
		Name:      findColumn(headers, s.Name),
		Aliases:   findColumn(headers, s.Aliases),
		Image:     findColumn(headers, s.Image),
		Allergens: findColumn(headers, s.Allergens),
		separator: sep,
	}
	if m.Name < 0 {
		return m, fmt.Errorf("%w (looked for %s)", ErrNoNameColumn, strings.Join(s.Name, ", "))
	}
	return m, nil
}

// MapRow converts one data row. Missing optional cells become empty values.
func (m ColumnMap) MapRow(row []string) (ProductRecord, error) {
	name := strings.TrimSpace(cell(row, m.Name))
	if name == "" {
		return ProductRecord{}, ErrMissingName
	}
	return ProductRecord{
		PrimaryName: name,
		Aliases:     splitList(cell(row, m.Aliases), m.separator),
		ImageURL:    strings.TrimSpace(cell(row, m.Image)),
		Allergens:   splitList(cell(row, m.Allergens), m.separator),
	}, nil
}

// BuildStats reports how many rows were kept and skipped.
type BuildStats struct {
	Rows    int `json:"rows"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Build maps raw tabular rows into an Index. Rows without a name are
// skipped; a header with no name column fails the whole load.
func Build(headers []string, rows [][]string, schema Schema, logger *zap.Logger) (*Index, BuildStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := BuildStats{Rows: len(rows)}

	cols, err := schema.Resolve(headers)
	if err != nil {
		return nil, stats, err
	}

	records := make([]ProductRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := cols.MapRow(row)
		if err != nil {
			stats.Skipped++
			logger.Debug("skipping catalog row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	stats.Loaded = len(records)

	if stats.Skipped > 0 {
		logger.Warn("catalog rows skipped", zap.Int("skipped", stats.Skipped), zap.Int("loaded", stats.Loaded))
	}
	return NewIndex(records), stats, nil
}

func findColumn(headers []string, candidates []string) int {
	for _, want := range candidates {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func splitList(raw, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
