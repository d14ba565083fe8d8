package lnproxy

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnwire"
	"go.uber.org/zap"

	"github.com/nodlAndHodl/lnproxy/common"
	"github.com/nodlAndHodl/lnproxy/types"
)

// WrapperConfig contains the dependencies of the wrap engine.
type WrapperConfig struct {
	// Gateway is the node that invoices are created on and payments are
	// forwarded through.
	Gateway Gateway

	// Clock is the time source for expiry calculations.
	Clock clock.Clock

	Logger *zap.SugaredLogger
}

// Wrapper is the invoice wrap engine. For each wrap request it issues a hold
// invoice locked to the payment hash of the invoice to wrap, and detaches a
// settlement session that forwards the payment once the hold invoice is
// accepted.
type Wrapper struct {
	gateway Gateway
	clock   clock.Clock
	logger  *zap.SugaredLogger
}

// NewWrapper instantiates a new wrap engine.
func NewWrapper(cfg *WrapperConfig) *Wrapper {
	return &Wrapper{
		gateway: cfg.Gateway,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
}

// WrapInvoice decodes the payment request in the given wrap request, creates
// a hold invoice for it with a fee and time lock budget sufficient to forward
// a payment to the original destination, and returns the payment request of
// the hold invoice. The returned invoice is watched asynchronously; it is
// settled if and only if the forwarded payment succeeds.
func (w *Wrapper) WrapInvoice(ctx context.Context,
	req *types.WrapRequest) (string, error) {

	inner, err := w.gateway.Decode(ctx, req.Invoice)
	if err != nil {
		return "", fmt.Errorf("decode payment request: %w", err)
	}

	logger := w.logger.With("hash", inner.PaymentHash.String())

	if err := validateInner(inner, req); err != nil {
		return "", err
	}

	routingFee := routingFeeMsat(inner.AmountMsat)

	estimate, err := w.gateway.EstimateRouteFee(
		ctx, inner.Destination, inner.AmountMsat,
	)
	if err != nil {
		return "", fmt.Errorf("estimate route fee: %w", err)
	}

	logger.Debugw("Route fee estimate",
		"routingFeeMsat", estimate.RoutingFeeMsat,
		"timeLockDelay", estimate.TimeLockDelay)

	cltv, err := cltvExpiry(estimate)
	if err != nil {
		return "", err
	}

	feeBudget := feeBudgetMsat(estimate)

	value, err := wrappedValueMsat(
		inner, feeBudget, routingFee, req.RoutingMsat,
	)
	if err != nil {
		return "", err
	}

	expiry, err := wrappedExpiry(inner, w.clock.Now())
	if err != nil {
		return "", err
	}

	hold, err := assembleHoldInvoice(inner, req, value, cltv, expiry)
	if err != nil {
		return "", err
	}

	// Validate once more against the assembled invoice. The round trips
	// above take time, and the wrapped invoice must not be issued if the
	// inner invoice meanwhile moved too close to its deadline.
	if err := validateHold(inner, hold, w.clock.Now()); err != nil {
		return "", err
	}

	paymentRequest, err := w.gateway.AddHoldInvoice(ctx, hold)
	if err != nil {
		return "", fmt.Errorf("create hold invoice: %w", err)
	}

	logger.Infow("Created wrapped invoice",
		"valueMsat", hold.ValueMsat,
		"cltvExpiry", hold.CltvExpiry,
		"expiry", hold.Expiry,
		"feeBudgetMsat", feeBudget)

	// Detach the settlement session. The caller gets a payable invoice
	// right away, the forwarded payment only happens once the payer
	// commits by completing the hold.
	session := newSettlementSession(&sessionConfig{
		Gateway:        w.gateway,
		Logger:         w.logger,
		Inner:          inner,
		PaymentRequest: req.Invoice,
		FeeBudgetMsat:  feeBudget,
	})

	go session.run(context.Background())

	return paymentRequest, nil
}

// validateInner rejects wrap requests that can never result in a safely
// wrapped invoice.
func validateInner(inner *types.InnerInvoice, req *types.WrapRequest) error {
	if inner.HasFeature(types.FeatureAMP) {
		return ErrAmpNotSupported
	}

	if req.Description != "" && req.DescriptionHash != "" {
		return ErrConflictingDescription
	}

	if inner.AmountMsat == 0 {
		return ErrMissingAmount
	}

	return nil
}

// validateHold re-checks the assembled hold invoice against the inner
// invoice.
func validateHold(inner *types.InnerInvoice, hold *types.HoldInvoice,
	now time.Time) error {

	if inner.Timestamp+inner.Expiry < now.Unix()+ExpiryBuffer {
		return ErrExpirationTooClose
	}

	if hold.Memo != "" && len(hold.DescriptionHash) > 0 {
		return ErrConflictingDescription
	}

	if inner.HasFeature(types.FeatureAMP) {
		return ErrAmpNotSupported
	}

	if hold.ValueMsat == 0 {
		return ErrMissingAmount
	}

	return nil
}

// assembleHoldInvoice builds the hold invoice creation data. The memo and
// description hash come from the overrides if set, otherwise from the inner
// invoice. The payment hash is always the inner payment hash, which is what
// ties settlement of the wrapped invoice to proof of the forwarded payment.
func assembleHoldInvoice(inner *types.InnerInvoice, req *types.WrapRequest,
	value lnwire.MilliSatoshi, cltv uint64, expiry int64) (
	*types.HoldInvoice, error) {

	hold := &types.HoldInvoice{
		PaymentHash: inner.PaymentHash,
		ValueMsat:   value,
		CltvExpiry:  cltv,
		Expiry:      expiry,
	}

	switch {
	case req.Description != "":
		hold.Memo = req.Description

	case req.DescriptionHash != "":
		descHash, err := common.HexToBytes(req.DescriptionHash)
		if err != nil {
			return nil, fmt.Errorf("invalid description hash: %v",
				err)
		}
		hold.DescriptionHash = descHash

	case len(inner.DescriptionHash) > 0:
		hold.DescriptionHash = inner.DescriptionHash

	default:
		hold.Memo = inner.Description
	}

	return hold, nil
}
