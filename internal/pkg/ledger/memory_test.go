package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

type counter struct {
	Value int64 `json:"value"`
}

type entry struct {
	Owner     string    `json:"owner"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

type strict struct {
	Amount int64 `json:"amount"`
}

func (s strict) Validate() error {
	if s.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	return nil
}

func fastStore() *ledger.MemoryStore {
	s := ledger.NewMemoryStore()
	s.SetRetryPolicy(ledger.RetryPolicy{MaxAttempts: 200, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond})
	return s
}

func TestMemoryStoreGetSetCreate(t *testing.T) {
	ctx := context.Background()
	s := fastStore()
	key := ledger.K("counters", "a")

	var c counter
	found, err := ledger.Get(ctx, s, key, &c)
	if err != nil || found {
		t.Fatalf("expected missing document, found=%v err=%v", found, err)
	}

	err = s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if err := tx.Create(ctx, key, counter{Value: 1}); err != nil {
			return err
		}
		// read-your-writes inside the same attempt
		var got counter
		ok, err := tx.Get(ctx, key, &got)
		if err != nil || !ok || got.Value != 1 {
			t.Errorf("expected buffered write visible, ok=%v value=%d err=%v", ok, got.Value, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Create(ctx, key, counter{Value: 2})
	})
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := ledger.Get(ctx, s, key, &c); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if c.Value != 1 {
		t.Fatalf("expected value 1, got %d", c.Value)
	}
}

func TestMemoryStoreBusinessErrorAbortsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	s := fastStore()
	errBusiness := errors.New("insufficient")
	calls := 0

	err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		calls++
		if err := tx.Set(ctx, ledger.K("counters", "x"), counter{Value: 5}); err != nil {
			return err
		}
		return errBusiness
	})
	if !errors.Is(err, errBusiness) {
		t.Fatalf("expected business error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}

	var c counter
	found, _ := ledger.Get(ctx, s, ledger.K("counters", "x"), &c)
	if found {
		t.Fatal("aborted transaction must not leave writes behind")
	}
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s := fastStore()
	key := ledger.K("counters", "shared")

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				var c counter
				if _, err := tx.Get(ctx, key, &c); err != nil {
					return err
				}
				c.Value++
				return tx.Set(ctx, key, c)
			})
			if err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var c counter
	if _, err := ledger.Get(ctx, s, key, &c); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if c.Value != workers {
		t.Fatalf("expected %d, got %d", workers, c.Value)
	}
}

func TestMemoryStoreQueryPredicateConflict(t *testing.T) {
	ctx := context.Background()
	s := fastStore()
	errFull := errors.New("full")

	// Each worker admits itself only while fewer than 3 entries exist for
	// the owner. Without predicate validation more than 3 would get in.
	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				docs, err := tx.Query(ctx, ledger.Query{
					Collection: "entries",
					Filters:    []ledger.Filter{ledger.Where("owner", ledger.Eq, "alice")},
				})
				if err != nil {
					return err
				}
				if len(docs) >= 3 {
					return errFull
				}
				return tx.Create(ctx, ledger.K("entries", fmt.Sprintf("e%d", i)), entry{Owner: "alice", Score: int64(i), CreatedAt: time.Now()})
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, errFull) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != 3 {
		t.Fatalf("expected 3 admitted, got %d", admitted)
	}
}

func TestMemoryStoreQueryFilterSortLimit(t *testing.T) {
	ctx := context.Background()
	s := fastStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		docs := map[string]entry{
			"a": {Owner: "bob", Score: 10, CreatedAt: base},
			"b": {Owner: "bob", Score: 30, CreatedAt: base.Add(500 * time.Millisecond)},
			"c": {Owner: "bob", Score: 20, CreatedAt: base.Add(time.Second)},
			"d": {Owner: "eve", Score: 99, CreatedAt: base.Add(2 * time.Second)},
		}
		for id, e := range docs {
			if err := tx.Set(ctx, ledger.K("entries", id), e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	docs, err := ledger.Find(ctx, s, ledger.Query{
		Collection: "entries",
		Filters: []ledger.Filter{
			ledger.Where("owner", ledger.Eq, "bob"),
			ledger.Where("createdAt", ledger.Gte, base.Add(100*time.Millisecond)),
		},
		OrderBy: &ledger.Sort{Field: "createdAt", Kind: ledger.SortTime, Desc: true},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 || docs[0].Key.ID != "c" || docs[1].Key.ID != "b" {
		t.Fatalf("unexpected time-ordered result: %+v", ids(docs))
	}

	docs, err = ledger.Find(ctx, s, ledger.Query{
		Collection: "entries",
		OrderBy:    &ledger.Sort{Field: "score", Kind: ledger.SortNumber, Desc: true},
		Limit:      2,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 || docs[0].Key.ID != "d" || docs[1].Key.ID != "b" {
		t.Fatalf("unexpected score-ordered result: %+v", ids(docs))
	}

	var e entry
	if err := docs[0].Decode(&e); err != nil || e.Score != 99 {
		t.Fatalf("decode failed: %v %+v", err, e)
	}
}

func TestMemoryStoreRejectsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	s := fastStore()

	err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Set(ctx, ledger.K("strict", "a"), strict{Amount: -1})
	})
	if !errors.Is(err, ledger.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument on write, got %v", err)
	}

	// A document written under a looser shape is rejected on read.
	if err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Set(ctx, ledger.K("strict", "b"), map[string]any{"amount": -5})
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	var out strict
	_, err = ledger.Get(ctx, s, ledger.K("strict", "b"), &out)
	if !errors.Is(err, ledger.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument on read, got %v", err)
	}
}

func TestMemoryStoreGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemoryStore()
	s.SetRetryPolicy(ledger.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Microsecond, MaxDelay: time.Microsecond})

	calls := 0
	err := s.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		calls++
		return ledger.ErrConflict
	})
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func ids(docs []ledger.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Key.ID
	}
	return out
}
