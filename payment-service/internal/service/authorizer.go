package service

import (
	"context"
	"math/rand/v2"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
)

// Refusal reasons reported with PaymentFailed.
const (
	RefusalInsufficientFunds = "INSUFFICIENT_FUNDS"
	RefusalCardExpired       = "CARD_EXPIRED"
	RefusalCardDeclined      = "CARD_DECLINED"
	RefusalFraudSuspected    = "FRAUD_SUSPECTED"
	RefusalLimitExceeded     = "LIMIT_EXCEEDED"
	RefusalUnknown           = "UNKNOWN"
)

var refusals = []string{
	RefusalInsufficientFunds,
	RefusalCardExpired,
	RefusalCardDeclined,
	RefusalFraudSuspected,
	RefusalLimitExceeded,
}

type Decision struct {
	Approved bool
	Reason   string
}

// Authorizer decides a pending payment. Real card processing is out of scope.
type Authorizer interface {
	Authorize(ctx context.Context, p domain.Payment) (Decision, error)
}

type AuthorizerFunc func(ctx context.Context, p domain.Payment) (Decision, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, p domain.Payment) (Decision, error) {
	return f(ctx, p)
}

// ApproveAll approves every payment.
var ApproveAll = AuthorizerFunc(func(context.Context, domain.Payment) (Decision, error) {
	return Decision{Approved: true}, nil
})

// DeclineAll refuses every payment with reason.
func DeclineAll(reason string) Authorizer {
	return AuthorizerFunc(func(context.Context, domain.Payment) (Decision, error) {
		return Decision{Reason: reason}, nil
	})
}

// RandomAuthorizer approves approvalPercent out of every 100 payments and
// refuses the rest with a random reason.
type RandomAuthorizer struct {
	approvalPercent int
	roll            func() int
}

func NewRandomAuthorizer(approvalPercent int) *RandomAuthorizer {
	return &RandomAuthorizer{
		approvalPercent: approvalPercent,
		roll:            func() int { return rand.IntN(101) },
	}
}

func (r *RandomAuthorizer) Authorize(context.Context, domain.Payment) (Decision, error) {
	return decide(r.roll(), r.approvalPercent), nil
}

// decide maps a roll in [0, 100] to a decision. Rolls just above the approval
// threshold pick a named refusal, anything past the list is unknown.
func decide(roll, approvalPercent int) Decision {
	if roll < approvalPercent {
		return Decision{Approved: true}
	}
	idx := roll - approvalPercent - 1
	if idx < 0 || idx >= len(refusals) {
		return Decision{Reason: RefusalUnknown}
	}
	return Decision{Reason: refusals[idx]}
}
