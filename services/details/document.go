package details

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jakebrehm/osrs-economy/lib/geapi"
	"github.com/jakebrehm/osrs-economy/lib/storage"
	"github.com/jakebrehm/osrs-economy/lib/warehouse"
)

// Item is one normalized record of the details document. Members is
// tri-state: the upstream reports it as the strings "true"/"false" and
// anything else is kept as unknown (null).
type Item struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     *bool  `json:"members"`
	UpdatedAt   string `json:"updated_at"`
}

// Document is the durable record store: every known item keyed by its
// decimal id, plus the ids confirmed to not resolve anymore. The two
// collections are always disjoint.
type Document struct {
	Items     map[string]Item `json:"items"`
	Invalid   []int           `json:"invalid"`
	UpdatedAt string          `json:"updated_at"`
}

func NewDocument() *Document {
	return &Document{Items: map[string]Item{}}
}

// LoadDocument reads the details document from the store. A missing or
// undecodable document is not fatal, the run just starts from empty state.
func LoadDocument(ctx context.Context, store storage.Store) *Document {
	doc := NewDocument()
	err := store.Load(ctx, storage.KindDetails, doc)
	if err != nil {
		slog.Warn("starting from an empty details document", "reason", err)
		return NewDocument()
	}
	if doc.Items == nil {
		doc.Items = map[string]Item{}
	}
	return doc
}

func (d *Document) Upsert(item Item) {
	d.Items[strconv.Itoa(item.ID)] = item
}

// MarkInvalid moves an id into the invalid set. An id is never both a
// valid record and invalid at the same time, so any existing record is
// dropped. The invalid set only ever grows; there is no re-validation
// path that clears entries from it.
func (d *Document) MarkInvalid(id int) {
	for _, existing := range d.Invalid {
		if existing == id {
			return
		}
	}
	delete(d.Items, strconv.Itoa(id))
	d.Invalid = append(d.Invalid, id)
}

// IDs returns the ids of all valid records, ascending.
func (d *Document) IDs() []int {
	ids := make([]int, 0, len(d.Items))
	for _, item := range d.Items {
		ids = append(ids, item.ID)
	}
	sort.Ints(ids)
	return ids
}

// Normalize sorts the invalid set ascending so persisted documents diff
// cleanly across runs. Item keys need no sorting here since the JSON
// encoder already writes map keys deterministically.
func (d *Document) Normalize() {
	sort.Ints(d.Invalid)
}

// ItemRows converts the document into warehouse rows, sorted by id.
func (d *Document) ItemRows() []warehouse.ItemRow {
	rows := make([]warehouse.ItemRow, 0, len(d.Items))
	for _, item := range d.Items {
		updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
		if err != nil {
			slog.Warn("item has a malformed timestamp", "id", item.ID, "updated_at", item.UpdatedAt)
		}
		rows = append(rows, warehouse.ItemRow{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			IsMembers:   item.Members,
			UpdatedAt:   updatedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// Checkpoint stamps, sorts and persists the whole document. This is the
// unit of durability: a crash between checkpoints loses at most the
// progress since the previous one. Write failures are fatal for the run
// and propagate.
func Checkpoint(ctx context.Context, store storage.Store, doc *Document) error {
	// a checkpoint triggered by cancellation must still complete,
	// otherwise a graceful stop would discard committed progress
	ctx = context.WithoutCancel(ctx)

	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	doc.Normalize()
	return store.Save(ctx, storage.KindDetails, doc)
}

// normalizeItem drops everything outside the desired schema and coerces
// the membership flag, stamping the record with the fetch time.
func normalizeItem(detail geapi.ItemDetail, now time.Time) Item {
	var members *bool
	switch detail.Members {
	case "true":
		value := true
		members = &value
	case "false":
		value := false
		members = &value
	}
	return Item{
		ID:          detail.ID,
		Name:        detail.Name,
		Description: detail.Description,
		Members:     members,
		UpdatedAt:   now.UTC().Format(time.RFC3339),
	}
}
