// record.go - Product records and the immutable catalog index

package catalog

// ProductRecord is one catalog entry mapped into the fixed product shape.
type ProductRecord struct {
	PrimaryName string   `json:"primary_name" bson:"primary_name"`
	Aliases     []string `json:"aliases" bson:"aliases"`
	ImageURL    string   `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Allergens   []string `json:"allergens" bson:"allergens"`
}

// Clone returns a copy that shares no slices with r. Nil lists become empty.
func (r ProductRecord) Clone() ProductRecord {
	r.Aliases = append([]string{}, r.Aliases...)
	r.Allergens = append([]string{}, r.Allergens...)
	return r
}

// NameEntry pairs a searchable name with the record it belongs to.
// The primary name appears once with Alias empty; each alias appears
// once with Alias set to that alias.
type NameEntry struct {
	Name   string
	Alias  string
	Record *ProductRecord
}

// Index is a read-only view over a loaded catalog. It is built once and
// shared by reference; nothing mutates it after construction, so it is
// safe for concurrent use.
type Index struct {
	records []ProductRecord
	names   []NameEntry
}

// NewIndex copies records into a new Index. Nil slices are replaced with
// empty ones so callers never see nil aliases or allergens.
func NewIndex(records []ProductRecord) *Index {
	idx := &Index{records: make([]ProductRecord, len(records))}
	for i, r := range records {
		idx.records[i] = r.Clone()
	}

	for i := range idx.records {
		rec := &idx.records[i]
		idx.names = append(idx.names, NameEntry{Name: rec.PrimaryName, Record: rec})
		for _, alias := range rec.Aliases {
			idx.names = append(idx.names, NameEntry{Name: alias, Alias: alias, Record: rec})
		}
	}
	return idx
}

// All returns copies of the records in load order.
func (i *Index) All() []ProductRecord {
	if i == nil {
		return nil
	}
	out := make([]ProductRecord, len(i.records))
	for n, r := range i.records {
		out[n] = r.Clone()
	}
	return out
}

// NamesWithAliases enumerates every (name, record) pair: for each record
// in load order, its primary name first followed by its aliases. Records
// are shared with the index and must not be modified.
func (i *Index) NamesWithAliases() []NameEntry {
	if i == nil {
		return nil
	}
	return append([]NameEntry(nil), i.names...)
}

// Len returns the number of records.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.records)
}

// Lookup returns the record with the given primary name.
func (i *Index) Lookup(primaryName string) (ProductRecord, bool) {
	if i == nil {
		return ProductRecord{}, false
	}
	for _, r := range i.records {
		if r.PrimaryName == primaryName {
			return r.Clone(), true
		}
	}
	return ProductRecord{}, false
}
