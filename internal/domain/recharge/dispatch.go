package recharge

import "context"

// CommissionDispatcher hands a completed recharge to agency commission
// propagation. It runs after the wallet credit committed.
type CommissionDispatcher interface {
	DispatchCommission(ctx context.Context, orderID, userID string, amountInr int64) error
}

// CommissionPropagator is implemented by the agency engine.
type CommissionPropagator interface {
	PropagateCommission(ctx context.Context, orderID, userID string, amountInr int64) (int, error)
}

// InlineDispatcher propagates synchronously in the request.
type InlineDispatcher struct {
	Propagator CommissionPropagator
}

func (d InlineDispatcher) DispatchCommission(ctx context.Context, orderID, userID string, amountInr int64) error {
	_, err := d.Propagator.PropagateCommission(ctx, orderID, userID, amountInr)
	return err
}
