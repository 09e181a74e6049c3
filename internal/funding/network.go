package funding

import (
	"context"

	"github.com/google/uuid"
)

// SettlementNetwork represents a connector to the external network that moves
// money in and out of the bank (ACH/wire processor).
type SettlementNetwork interface {
	AuthorizeDeposit(ctx context.Context, in Authorization) (Decision, error)
	AuthorizeWithdrawal(ctx context.Context, in Authorization) (Decision, error)
}

// Authorization encapsulates details sent to the network.
type Authorization struct {
	AccountNumber string
	RoutingNumber string
	Amount        int64
}

// Decision captures the simulated response from the network.
type Decision struct {
	Reference string
	Status    string
}

// StaticNetwork simulates a successful settlement network integration.
type StaticNetwork struct{}

// AuthorizeDeposit approves the deposit with a synthetic reference.
func (StaticNetwork) AuthorizeDeposit(_ context.Context, _ Authorization) (Decision, error) {
	return Decision{Reference: uuid.NewString(), Status: "approved"}, nil
}

// AuthorizeWithdrawal approves the withdrawal with a synthetic reference.
func (StaticNetwork) AuthorizeWithdrawal(_ context.Context, _ Authorization) (Decision, error) {
	return Decision{Reference: uuid.NewString(), Status: "approved"}, nil
}
