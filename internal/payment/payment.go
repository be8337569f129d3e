package payment

import "github.com/shopspring/decimal"

// Authorizer decides whether a checkout amount may be charged. Checkout
// records the verdict on the order without caring who made it, so a real
// gateway client can replace the stub without touching checkout itself.
type Authorizer interface {
	Authorize(orderID string, amount decimal.Decimal) (bool, error)
}

// AlwaysApprove is the stub authorizer: every charge succeeds.
type AlwaysApprove struct{}

// Authorize approves unconditionally.
func (AlwaysApprove) Authorize(orderID string, amount decimal.Decimal) (bool, error) {
	return true, nil
}
