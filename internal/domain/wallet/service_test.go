package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func newTestService() (*Service, ledger.Store, *recordingPublisher) {
	store := ledger.NewMemoryStore()
	store.SetRetryPolicy(ledger.RetryPolicy{MaxAttempts: 200, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond})
	pub := &recordingPublisher{}
	return NewService(store, pub), store, pub
}

func TestCreateWalletGrantsOnce(t *testing.T) {
	ctx := context.Background()
	svc, store, pub := newTestService()

	w, created, err := svc.CreateWallet(ctx, "alice")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created || w.Coins != InitialCoins || w.Diamonds != 0 {
		t.Fatalf("unexpected first wallet: created=%v %+v", created, w)
	}

	// Spend some coins, then call create again: the grant must not repeat.
	err = store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := Debit(ctx, tx, "alice", Coins, 300, "t1", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	w, created, err = svc.CreateWallet(ctx, "alice")
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if created || w.Coins != 700 {
		t.Fatalf("expected existing wallet with 700 coins, got created=%v coins=%d", created, w.Coins)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "wallet:alice" {
		t.Fatalf("expected one wallet event, got %v", pub.topics)
	}
}

func TestCreateWalletConcurrentCallsGrantOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	var wg sync.WaitGroup
	var mu sync.Mutex
	creations := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := svc.CreateWallet(ctx, "bob")
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			if created {
				mu.Lock()
				creations++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if creations != 1 {
		t.Fatalf("expected exactly one creation, got %d", creations)
	}
	w, err := svc.GetWallet(ctx, "bob")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if w.Coins != InitialCoins {
		t.Fatalf("expected %d coins, got %d", InitialCoins, w.Coins)
	}
}

func TestDebitRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	if _, _, err := svc.CreateWallet(ctx, "carol"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := Debit(ctx, tx, "carol", Coins, InitialCoins+1, "t1", time.Now())
		return err
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	w, _ := svc.GetWallet(ctx, "carol")
	if w.Coins != InitialCoins || w.LastTransactionID != "" {
		t.Fatalf("failed debit must not touch the wallet: %+v", w)
	}
}

func TestCreditCreatesMissingWallet(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := Credit(ctx, tx, "dave", Diamonds, 60, "t9", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	w, err := svc.GetWallet(ctx, "dave")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if w.Diamonds != 60 || w.Coins != 0 || w.LastTransactionID != "t9" {
		t.Fatalf("unexpected wallet: %+v", w)
	}
}

func TestGetWalletNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.GetWallet(context.Background(), "nobody"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	err := store.RunTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		records := []Transaction{
			{TransactionID: "t1", SenderID: "erin", ReceiverID: "frank", GiftID: "rose", CoinAmount: 10, DiamondAmount: 6, CreatedAt: base, Source: SourceGift},
			{TransactionID: "t2", SenderID: "frank", ReceiverID: "erin", GiftID: "heart", CoinAmount: 50, DiamondAmount: 30, CreatedAt: base.Add(time.Minute), Source: SourceGift},
			{TransactionID: "t3", SenderID: "erin", ReceiverID: "erin", GiftID: "rose", CoinAmount: 10, DiamondAmount: 6, CreatedAt: base.Add(2 * time.Minute), Source: SourceGift},
			{TransactionID: "t4", SenderID: "gina", ReceiverID: "frank", GiftID: "rose", CoinAmount: 10, DiamondAmount: 6, CreatedAt: base.Add(3 * time.Minute), Source: SourceGift},
		}
		for _, r := range records {
			if err := tx.Create(ctx, TransactionKey(r.TransactionID), r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	items, err := svc.ListTransactions(ctx, "erin", 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 3 || items[0].TransactionID != "t3" || items[1].TransactionID != "t2" || items[2].TransactionID != "t1" {
		t.Fatalf("unexpected history: %+v", items)
	}
}
