package recharge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/user"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/razorpay"
)

const testSecret = "rzp_secret"

type fakeGateway struct {
	mu       sync.Mutex
	next     int
	fail     error
	requests []razorpay.CreateOrderRequest
}

func (g *fakeGateway) Configured() bool { return true }
func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	g.next++
	g.requests = append(g.requests, req)
	return &razorpay.Order{ID: fmt.Sprintf("order_%d", g.next), Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return razorpay.VerifySignature(testSecret, orderID, paymentID, signature)
}

type dispatchCall struct {
	orderID, userID string
	amountInr       int64
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (d *recordingDispatcher) DispatchCommission(_ context.Context, orderID, userID string, amountInr int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{orderID, userID, amountInr})
	return d.err
}

type fixture struct {
	store      *ledger.MemoryStore
	svc        *Service
	gateway    *fakeGateway
	dispatcher *recordingDispatcher
	wallets    *wallet.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.SetRetryPolicy(ledger.RetryPolicy{MaxAttempts: 300, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond})
	f := &fixture{
		store:      store,
		gateway:    &fakeGateway{},
		dispatcher: &recordingDispatcher{},
		wallets:    wallet.NewService(store, nil),
	}
	f.svc = NewService(store, f.gateway, f.dispatcher, nil)
	f.svc.SetClock(func() time.Time { return time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC) })
	return f
}

func (f *fixture) order(t *testing.T, userID string, inr int64) *CreateOrderResult {
	t.Helper()
	res, err := f.svc.CreateOrder(context.Background(), userID, inr)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return res
}

func TestCreateOrderUsesPackTable(t *testing.T) {
	f := newFixture(t)

	res := f.order(t, "alice", 499)
	if res.AmountPaise != 49900 || res.Coins != 5500 || res.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected result: %+v", res)
	}
	req := f.gateway.requests[0]
	if req.Amount != 49900 || req.Currency != "INR" || req.Notes["userId"] != "alice" || !strings.HasPrefix(req.Receipt, "recharge_alice_") {
		t.Fatalf("unexpected gateway request: %+v", req)
	}

	var stored Order
	found, err := ledger.Get(context.Background(), f.store, ledger.K(ledger.RechargeOrders, res.OrderID), &stored)
	if err != nil || !found {
		t.Fatalf("order not stored: found=%v err=%v", found, err)
	}
	if stored.Status != StatusCreated || stored.CoinsToCredit != 5500 {
		t.Fatalf("unexpected stored order: %+v", stored)
	}
}

func TestCreateOrderRejectsUnknownAmount(t *testing.T) {
	f := newFixture(t)
	for _, amount := range []int64{0, 100, 500, -99} {
		if _, err := f.svc.CreateOrder(context.Background(), "alice", amount); !errors.Is(err, ErrInvalidPack) {
			t.Errorf("amount %d: expected ErrInvalidPack, got %v", amount, err)
		}
	}
	if len(f.gateway.requests) != 0 {
		t.Fatal("gateway must not be called for invalid packs")
	}
}

func TestCreateOrderGatewayFailureLeavesNoOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.fail = errors.New("timeout")

	if _, err := f.svc.CreateOrder(context.Background(), "alice", 99); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	docs, _ := ledger.Find(context.Background(), f.store, ledger.Query{Collection: ledger.RechargeOrders})
	if len(docs) != 0 {
		t.Fatalf("expected no stored orders, got %d", len(docs))
	}
}

func TestReceiptIsTruncated(t *testing.T) {
	r := receiptFor(strings.Repeat("u", 50), time.Unix(1_700_000_000, 0))
	if len(r) != maxReceiptLen || !strings.HasPrefix(r, "recharge_uuu") {
		t.Fatalf("unexpected receipt %q", r)
	}
}

func TestVerifyPaymentCreditsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.wallets.CreateWallet(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	o := f.order(t, "alice", 999)
	sig := razorpay.Sign(testSecret, o.OrderID, "pay_1")

	res, err := f.svc.VerifyPayment(ctx, "alice", o.OrderID, "pay_1", sig)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Coins != 12000 || res.VipLevel != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := f.svc.VerifyPayment(ctx, "alice", o.OrderID, "pay_1", sig); !errors.Is(err, ErrReplay) {
		t.Fatalf("expected ErrReplay, got %v", err)
	}

	w, _ := f.wallets.GetWallet(ctx, "alice")
	if w.Coins != wallet.InitialCoins+12000 || !w.CumulativeRechargeInr.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("unexpected wallet: %+v", w)
	}
	if w.LastTransactionID != "recharge_"+o.OrderID {
		t.Fatalf("unexpected audit pointer %q", w.LastTransactionID)
	}
	if len(f.dispatcher.calls) != 1 || f.dispatcher.calls[0] != (dispatchCall{o.OrderID, "alice", 999}) {
		t.Fatalf("expected a single commission dispatch, got %+v", f.dispatcher.calls)
	}
}

func TestVerifyPaymentConcurrentReplays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.order(t, "alice", 99)
	sig := razorpay.Sign(testSecret, o.OrderID, "pay_1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyPayment(ctx, "alice", o.OrderID, "pay_1", sig)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else if !errors.Is(err, ErrReplay) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Fatalf("expected one credit, got %d", ok)
	}
	w, _ := f.wallets.GetWallet(ctx, "alice")
	if w.Coins != 1000 {
		t.Fatalf("expected 1000 coins from one pack, got %d", w.Coins)
	}
}

func TestVerifyPaymentRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.order(t, "alice", 99)
	sig := razorpay.Sign(testSecret, o.OrderID, "pay_1")

	if _, err := f.svc.VerifyPayment(ctx, "alice", o.OrderID, "pay_1", "deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := f.svc.VerifyPayment(ctx, "mallory", o.OrderID, "pay_1", sig); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for another user's order, got %v", err)
	}
	ghost := razorpay.Sign(testSecret, "order_ghost", "pay_1")
	if _, err := f.svc.VerifyPayment(ctx, "alice", "order_ghost", "pay_1", ghost); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := f.wallets.GetWallet(ctx, "alice"); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("rejected verifications must not touch the wallet, got %v", err)
	}
}

func TestVerifyPaymentUpdatesVipOnWalletAndProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i, inr := range []int64{4999, 4999} {
		o := f.order(t, "whale", inr)
		pay := fmt.Sprintf("pay_%d", i)
		if _, err := f.svc.VerifyPayment(ctx, "whale", o.OrderID, pay, razorpay.Sign(testSecret, o.OrderID, pay)); err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
	}

	w, _ := f.wallets.GetWallet(ctx, "whale")
	if w.VipLevel != 3 {
		t.Fatalf("expected VIP 3 at 9998 INR, got %d", w.VipLevel)
	}
	p, err := user.Lookup(ctx, f.store, "whale")
	if err != nil || p.VipLevel != 3 {
		t.Fatalf("expected profile VIP 3, got %+v err=%v", p, err)
	}
}

func TestVipLevelLadder(t *testing.T) {
	cases := map[int64]int{0: 0, 499: 0, 500: 1, 1999: 1, 2000: 2, 5000: 3, 9999: 3, 10000: 4, 25000: 5, 1_000_000: 5}
	for inr, want := range cases {
		if got := VipLevel(decimal.NewFromInt(inr)); got != want {
			t.Errorf("VipLevel(%d) = %d, want %d", inr, got, want)
		}
	}
}

func TestCommissionFailureDoesNotUndoCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.dispatcher.err = errors.New("redis down")
	o := f.order(t, "alice", 99)

	if _, err := f.svc.VerifyPayment(ctx, "alice", o.OrderID, "pay_1", razorpay.Sign(testSecret, o.OrderID, "pay_1")); err != nil {
		t.Fatalf("verify must succeed despite dispatch failure: %v", err)
	}
	w, _ := f.wallets.GetWallet(ctx, "alice")
	if w.Coins != 1000 {
		t.Fatalf("expected coins credited, got %d", w.Coins)
	}

	f.dispatcher.err = nil
	if err := f.svc.RedriveCommission(ctx, o.OrderID); err != nil {
		t.Fatalf("redrive failed: %v", err)
	}
	if len(f.dispatcher.calls) != 2 {
		t.Fatalf("expected redrive to dispatch again, got %d calls", len(f.dispatcher.calls))
	}
}

func TestRechargePaysUplineInline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	agencies := agency.NewService(f.store, nil)
	f.svc.dispatcher = InlineDispatcher{Propagator: agencies}

	parent, _, err := agencies.CreateAgency(ctx, "parent")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := agencies.CreateAgency(ctx, "child"); err != nil {
		t.Fatal(err)
	}
	if _, err := agencies.BindAgency(ctx, "child", parent.AgencyCode); err != nil {
		t.Fatal(err)
	}

	o := f.order(t, "child", 2499)
	if _, err := f.svc.VerifyPayment(ctx, "child", o.OrderID, "pay_1", razorpay.Sign(testSecret, o.OrderID, "pay_1")); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	// Re-driving the same order must not pay twice.
	if err := f.svc.RedriveCommission(ctx, o.OrderID); err != nil {
		t.Fatal(err)
	}

	n, _ := agencies.GetAgency(ctx, "parent")
	if n.CommissionBalance != 49 || n.TeamEarnings != 49 {
		t.Fatalf("expected 49 commission, got %+v", n)
	}
}
