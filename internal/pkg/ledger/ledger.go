// Package ledger is the transactional document store every economy engine
// runs against. All balance mutations go through Store.RunTx: reads observe
// one consistent snapshot, writes apply as a set, and conflicting
// transactions are aborted and retried with backoff.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConflict means a concurrent commit invalidated this transaction.
	// RunTx retries it; callers only see it once attempts are exhausted.
	ErrConflict = errors.New("ledger: transaction conflict")

	// ErrAlreadyExists is returned by Tx.Create when the key is taken.
	ErrAlreadyExists = errors.New("ledger: document already exists")

	// ErrMalformedDocument is returned when a stored or written document
	// fails its Validate method.
	ErrMalformedDocument = errors.New("ledger: malformed document")

	ErrInvalidQuery = errors.New("ledger: invalid query")
)

// Collection names shared by the engines.
const (
	Wallets            = "wallets"
	Transactions       = "transactions"
	Rooms              = "rooms"
	Users              = "users"
	AgencyNodes        = "agencies"
	AgencyCodes        = "agencyCodes"
	CommissionHistory  = "commissionHistory"
	RechargeOrders     = "rechargeOrders"
	WithdrawalRequests = "withdrawalRequests"
	HostActivity       = "hostActivity"
	ContestRewards     = "contestRewards"
	AdminAudit         = "adminAudit"
)

// Key addresses one document.
type Key struct {
	Collection string
	ID         string
}

func K(collection, id string) Key {
	return Key{Collection: collection, ID: id}
}

func (k Key) String() string {
	return k.Collection + "/" + k.ID
}

func (k Key) valid() bool {
	return k.Collection != "" && k.ID != ""
}

// Validator is implemented by typed records. The store calls it after
// decoding and before writing, so a malformed record never enters or leaves
// the ledger silently.
type Validator interface {
	Validate() error
}

// Document is a raw query result.
type Document struct {
	Key  Key
	Body json.RawMessage
}

// Decode unmarshals the body into dst and validates it.
func (d Document) Decode(dst any) error {
	return decode(d.Key, d.Body, dst)
}

// Op is a filter comparison.
type Op string

const (
	Eq  Op = "=="
	Gte Op = ">="
	Lte Op = "<="
)

// Filter compares a top-level document field against Value. Value may be a
// string, bool, any integer or float, or time.Time.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// SortKind tells the store how to compare an ordering field.
type SortKind int

const (
	SortString SortKind = iota
	SortNumber
	SortTime
)

type Sort struct {
	Field string
	Kind  SortKind
	Desc  bool
}

// Query selects documents from one collection. A query issued inside a
// transaction is part of its read set: a concurrent commit that adds or
// changes a matching document aborts the transaction.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    *Sort
	Limit      int
}

func (q Query) validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: bad field %q", ErrInvalidQuery, f.Field)
		}
		switch f.Op {
		case Eq, Gte, Lte:
		default:
			return fmt.Errorf("%w: bad operator %q", ErrInvalidQuery, f.Op)
		}
		if _, err := normalize(f.Value); err != nil {
			return err
		}
	}
	if q.OrderBy != nil && !fieldPattern.MatchString(q.OrderBy.Field) {
		return fmt.Errorf("%w: bad order field %q", ErrInvalidQuery, q.OrderBy.Field)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// Tx is one attempt of a read-modify-write transaction. Nothing written
// through it is visible to others until the attempt commits.
type Tx interface {
	// Get loads key into dst and reports whether it exists.
	Get(ctx context.Context, key Key, dst any) (bool, error)
	// Set creates or replaces the document.
	Set(ctx context.Context, key Key, doc any) error
	// Create writes the document only if the key is free.
	Create(ctx context.Context, key Key, doc any) error
	Query(ctx context.Context, q Query) ([]Document, error)
}

// TxFunc must be safe to run more than once: it is re-executed from scratch
// after a conflict.
type TxFunc func(ctx context.Context, tx Tx) error

type Store interface {
	RunTx(ctx context.Context, fn TxFunc) error
	Close() error
}

// Get reads a single document outside any caller transaction.
func Get(ctx context.Context, s Store, key Key, dst any) (bool, error) {
	var found bool
	err := s.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		found, err = tx.Get(ctx, key, dst)
		return err
	})
	return found, err
}

// Find runs a read-only query outside any caller transaction.
func Find(ctx context.Context, s Store, q Query) ([]Document, error) {
	var docs []Document
	err := s.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		docs, err = tx.Query(ctx, q)
		return err
	})
	return docs, err
}

func decode(key Key, body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedDocument, key, err)
	}
	if v, ok := dst.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedDocument, key, err)
		}
	}
	return nil
}

func encode(key Key, doc any) (json.RawMessage, error) {
	if !key.valid() {
		return nil, fmt.Errorf("ledger: invalid key %q", key)
	}
	if v, ok := doc.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, key, err)
		}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode %s: %w", key, err)
	}
	return body, nil
}

// normalize maps a filter value onto one of string, float64, bool or
// time.Time.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case string, bool, float64:
		return t, nil
	case time.Time:
		return t.UTC(), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	default:
		return nil, fmt.Errorf("%w: unsupported filter value %T", ErrInvalidQuery, v)
	}
}
