package ledger

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store with optimistic concurrency control.
// Every commit bumps a global sequence; a transaction remembers the
// sequence it started at and the versions it observed, and commit fails
// with ErrConflict if any of them moved or a query it ran would now match
// a newer document. Used by tests and by LEDGER_DRIVER=memory.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   int64
	colls map[string]map[string]*memDoc
	retry RetryPolicy
}

type memDoc struct {
	body    json.RawMessage
	version int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		colls: make(map[string]map[string]*memDoc),
		retry: DefaultRetryPolicy(),
	}
}

func (s *MemoryStore) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) RunTx(ctx context.Context, fn TxFunc) error {
	return s.retry.run(ctx, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := s.begin()
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

func (s *MemoryStore) begin() *memTx {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &memTx{
		store:    s,
		snapshot: s.seq,
		reads:    make(map[Key]int64),
		writes:   make(map[Key]json.RawMessage),
	}
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range tx.reads {
		if s.versionLocked(key) != seen {
			return ErrConflict
		}
	}
	for _, q := range tx.queries {
		for _, d := range s.colls[q.Collection] {
			if d.version > tx.snapshot && parseFields(d.body).matches(q.Filters) {
				return ErrConflict
			}
		}
	}

	if len(tx.writes) == 0 {
		return nil
	}
	s.seq++
	for _, key := range tx.order {
		coll, ok := s.colls[key.Collection]
		if !ok {
			coll = make(map[string]*memDoc)
			s.colls[key.Collection] = coll
		}
		coll[key.ID] = &memDoc{body: tx.writes[key], version: s.seq}
	}
	return nil
}

func (s *MemoryStore) versionLocked(key Key) int64 {
	if d, ok := s.colls[key.Collection][key.ID]; ok {
		return d.version
	}
	return 0
}

type memTx struct {
	store    *MemoryStore
	snapshot int64
	reads    map[Key]int64
	queries  []Query
	writes   map[Key]json.RawMessage
	order    []Key
}

// observe records a committed read. It fails when the document is newer
// than the snapshot, which keeps every read in one attempt consistent.
func (tx *memTx) observe(key Key) (json.RawMessage, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	d, ok := tx.store.colls[key.Collection][key.ID]
	if !ok {
		tx.reads[key] = 0
		return nil, nil
	}
	if d.version > tx.snapshot {
		return nil, ErrConflict
	}
	tx.reads[key] = d.version
	return d.body, nil
}

func (tx *memTx) Get(ctx context.Context, key Key, dst any) (bool, error) {
	if body, ok := tx.writes[key]; ok {
		return true, decode(key, body, dst)
	}
	body, err := tx.observe(key)
	if err != nil || body == nil {
		return false, err
	}
	return true, decode(key, body, dst)
}

func (tx *memTx) Set(ctx context.Context, key Key, doc any) error {
	body, err := encode(key, doc)
	if err != nil {
		return err
	}
	tx.buffer(key, body)
	return nil
}

func (tx *memTx) Create(ctx context.Context, key Key, doc any) error {
	body, err := encode(key, doc)
	if err != nil {
		return err
	}
	if _, ok := tx.writes[key]; ok {
		return ErrAlreadyExists
	}
	existing, err := tx.observe(key)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyExists
	}
	tx.buffer(key, body)
	return nil
}

func (tx *memTx) buffer(key Key, body json.RawMessage) {
	if _, ok := tx.writes[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.writes[key] = body
}

func (tx *memTx) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	items, err := tx.scan(q)
	if err != nil {
		return nil, err
	}
	tx.queries = append(tx.queries, q)

	// Overlay this transaction's own uncommitted writes.
	for key, body := range tx.writes {
		if key.Collection != q.Collection {
			continue
		}
		for i := range items {
			if items[i].doc.Key == key {
				items = append(items[:i], items[i+1:]...)
				break
			}
		}
		f := parseFields(body)
		if f.matches(q.Filters) {
			items = append(items, sortable{doc: Document{Key: key, Body: body}, fields: f})
		}
	}

	sortDocuments(items, q.OrderBy)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	docs := make([]Document, len(items))
	for i, it := range items {
		docs[i] = Document{Key: it.doc.Key, Body: append(json.RawMessage(nil), it.doc.Body...)}
	}
	return docs, nil
}

func (tx *memTx) scan(q Query) ([]sortable, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	var items []sortable
	for id, d := range tx.store.colls[q.Collection] {
		f := parseFields(d.body)
		if !f.matches(q.Filters) {
			continue
		}
		if d.version > tx.snapshot {
			return nil, ErrConflict
		}
		key := Key{Collection: q.Collection, ID: id}
		tx.reads[key] = d.version
		items = append(items, sortable{doc: Document{Key: key, Body: d.body}, fields: f})
	}
	return items, nil
}
