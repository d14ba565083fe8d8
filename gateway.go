package lnproxy

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/nodlAndHodl/lnproxy/common"
	"github.com/nodlAndHodl/lnproxy/types"
)

// Gateway is the capability surface that the wrap engine requires from a
// Lightning node. Streams are exposed as receive closures that block until
// the next event arrives and return an error when the stream closes.
type Gateway interface {
	// Decode decodes a payment request.
	Decode(ctx context.Context, paymentRequest string) (
		*types.InnerInvoice, error)

	// EstimateRouteFee asks the node what routing fee and time lock it
	// expects to need to reach the given destination.
	EstimateRouteFee(ctx context.Context, dest common.PubKey,
		amtMsat lnwire.MilliSatoshi) (*types.RouteFeeEstimate, error)

	// AddHoldInvoice creates a hold invoice and returns its payment
	// request.
	AddHoldInvoice(ctx context.Context, invoice *types.HoldInvoice) (
		string, error)

	// SubscribeInvoiceState opens a state event stream for the invoice
	// with the given payment hash.
	SubscribeInvoiceState(ctx context.Context, hash lntypes.Hash) (
		func() (types.InvoiceState, error), error)

	// SendPayment pays a payment request and streams the payment updates.
	SendPayment(ctx context.Context, paymentRequest string,
		feeLimitMsat lnwire.MilliSatoshi, cltvLimit uint64,
		timeout time.Duration) (func() (*types.PaymentUpdate, error),
		error)

	// SettleInvoice settles the hold invoice locked to the hash of the
	// given preimage.
	SettleInvoice(ctx context.Context, preimage lntypes.Preimage) error

	// CancelInvoice cancels the hold invoice with the given payment hash.
	CancelInvoice(ctx context.Context, hash lntypes.Hash) error
}
