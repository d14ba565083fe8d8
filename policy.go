package lnproxy

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/nodlAndHodl/lnproxy/types"
)

// Fixed policy parameters for the fee and time lock budget of wrapped
// invoices.
const (
	// RoutingFeeBaseMsat is the base fee charged for relaying a payment.
	RoutingFeeBaseMsat lnwire.MilliSatoshi = 1000

	// RoutingFeePPM is the proportional fee charged for relaying, in parts
	// per million of the inner invoice amount.
	RoutingFeePPM = 1000

	// MinFeeBudgetMsat is the minimum margin a caller-specified routing
	// budget must leave on top of the routing fee.
	MinFeeBudgetMsat lnwire.MilliSatoshi = 1000

	// ExpiryBuffer is the number of seconds of inner invoice lifetime that
	// is reserved for completing the forwarded payment.
	ExpiryBuffer int64 = 300

	// CltvDeltaAlpha and CltvDeltaBeta are added to the estimated time
	// lock delay to absorb blocks mined while the payment is in flight.
	CltvDeltaAlpha = 42
	CltvDeltaBeta  = 42

	// MaxCltvExpiry bounds the time lock the wrapped invoice may require.
	MaxCltvExpiry = 1800

	// MinCltvExpiry is the floor for the wrapped invoice time lock.
	MinCltvExpiry = 200

	// RoutingBudgetAlpha and RoutingBudgetBeta (ppm) determine the fee
	// budget margin on top of the estimated routing fee.
	RoutingBudgetAlpha lnwire.MilliSatoshi = 1000
	RoutingBudgetBeta                      = 1_500_000

	// MaxExpiry caps the wrapped invoice lifetime in seconds.
	MaxExpiry int64 = 604800
)

// routingFeeMsat returns the fee this node charges for relaying a payment of
// the given amount.
func routingFeeMsat(amt lnwire.MilliSatoshi) lnwire.MilliSatoshi {
	return RoutingFeeBaseMsat + amt*RoutingFeePPM/1_000_000
}

// cltvExpiry returns the time lock requirement for the wrapped invoice, based
// on a fresh route estimate. The value is clamped from below to MinCltvExpiry
// and rejected if it exceeds MaxCltvExpiry.
func cltvExpiry(estimate *types.RouteFeeEstimate) (uint64, error) {
	delta := estimate.TimeLockDelay + CltvDeltaAlpha + CltvDeltaBeta
	if delta > MaxCltvExpiry {
		return 0, ErrCltvTooHigh
	}

	if delta < MinCltvExpiry {
		delta = MinCltvExpiry
	}

	return uint64(delta), nil
}

// feeBudgetMsat returns the fee limit used for the forwarded payment. It adds
// a fixed and a proportional margin to the estimated routing fee, because the
// estimate is not a guarantee that a route at that fee exists at pay time.
func feeBudgetMsat(estimate *types.RouteFeeEstimate) lnwire.MilliSatoshi {
	return estimate.RoutingFeeMsat + RoutingBudgetAlpha +
		estimate.RoutingFeeMsat*RoutingBudgetBeta/1_000_000
}

// wrappedValueMsat returns the amount of the wrapped invoice. By default the
// fee budget and the relay fee are added on top of the inner amount. If the
// caller specified a total routing budget, that budget replaces both, but
// must cover at least the relay fee plus the minimum margin.
func wrappedValueMsat(inner *types.InnerInvoice, feeBudget,
	routingFee lnwire.MilliSatoshi, routingMsat string) (
	lnwire.MilliSatoshi, error) {

	value := inner.AmountMsat + feeBudget + routingFee
	if value < inner.AmountMsat {
		return 0, ErrValueOverflow
	}

	if routingMsat != "" {
		budget, err := strconv.ParseUint(routingMsat, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid routing budget %q: %v",
				routingMsat, err)
		}

		if lnwire.MilliSatoshi(budget) < MinFeeBudgetMsat+routingFee {
			return 0, ErrRoutingBudgetTooLow
		}

		value = inner.AmountMsat - routingFee +
			lnwire.MilliSatoshi(budget)

		// The budget exceeds the relay fee, so absent wrap-around the
		// value cannot be below the inner amount. An untrusted budget
		// must never produce an invoice worth less than the payment
		// it obliges this node to forward.
		if value < inner.AmountMsat {
			return 0, ErrValueOverflow
		}
	}

	return value, nil
}

// wrappedExpiry returns the lifetime in seconds of the wrapped invoice. The
// wrapped invoice expires ExpiryBuffer seconds before the inner invoice does,
// so that an accepted payment can still be forwarded before the inner
// deadline passes.
func wrappedExpiry(inner *types.InnerInvoice, now time.Time) (int64, error) {
	nowUnix := now.Unix()

	if inner.Timestamp+inner.Expiry < nowUnix+ExpiryBuffer {
		return 0, ErrExpirationTooClose
	}

	expiry := inner.Expiry
	if expiry > MaxExpiry {
		expiry = MaxExpiry
	}

	return inner.Timestamp + expiry - nowUnix - ExpiryBuffer, nil
}
