package lnproxy

import (
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"

	"github.com/nodlAndHodl/lnproxy/types"
)

func TestRoutingFeeMsat(t *testing.T) {
	// Base fee plus 1000 ppm of the amount, truncating.
	require.Equal(t, lnwire.MilliSatoshi(1100),
		routingFeeMsat(100_000))

	// Amounts below 1000 msat only pay the base fee.
	require.Equal(t, lnwire.MilliSatoshi(1000),
		routingFeeMsat(999))
}

func TestCltvExpiry(t *testing.T) {
	// Raw sum below the floor is raised to the floor.
	cltv, err := cltvExpiry(&types.RouteFeeEstimate{TimeLockDelay: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(200), cltv)

	// Raw sum above the floor is used as is.
	cltv, err = cltvExpiry(&types.RouteFeeEstimate{TimeLockDelay: 200})
	require.NoError(t, err)
	require.Equal(t, uint64(284), cltv)

	// Raw sum above the cap is rejected, never clamped down.
	_, err = cltvExpiry(&types.RouteFeeEstimate{TimeLockDelay: 2000})
	require.ErrorIs(t, err, ErrCltvTooHigh)
}

func TestFeeBudgetMsat(t *testing.T) {
	budget := feeBudgetMsat(&types.RouteFeeEstimate{
		RoutingFeeMsat: 50,
	})
	require.Equal(t, lnwire.MilliSatoshi(1125), budget)
}

func TestWrappedValueMsat(t *testing.T) {
	inner := &types.InnerInvoice{AmountMsat: 1000}

	// Default: amount plus fee budget plus relay fee.
	value, err := wrappedValueMsat(inner, 500, 200, "")
	require.NoError(t, err)
	require.Equal(t, lnwire.MilliSatoshi(1700), value)

	// Caller budget below relay fee plus minimum margin.
	_, err = wrappedValueMsat(inner, 500, 200, "100")
	require.ErrorIs(t, err, ErrRoutingBudgetTooLow)

	// Caller budget replaces fee budget and relay fee.
	value, err = wrappedValueMsat(inner, 500, 200, "5000")
	require.NoError(t, err)
	require.Equal(t, lnwire.MilliSatoshi(5800), value)

	// Caller budget must be a decimal integer.
	_, err = wrappedValueMsat(inner, 500, 200, "all of it")
	require.Error(t, err)

	// Wrap-around of the default sum is detected.
	bigInner := &types.InnerInvoice{
		AmountMsat: lnwire.MilliSatoshi(^uint64(0) - 100),
	}
	_, err = wrappedValueMsat(bigInner, 500, 200, "")
	require.ErrorIs(t, err, ErrValueOverflow)

	// A caller budget near 2^64 passes the minimum gate but would wrap
	// the override sum around to a value below the inner amount, leaving
	// the forward obligation underfunded. 2^64-98000 against a 100 000
	// msat invoice with a 1100 msat relay fee wraps to 900.
	forwarded := &types.InnerInvoice{AmountMsat: 100_000}
	_, err = wrappedValueMsat(
		forwarded, 1125, 1100, "18446744073709453616",
	)
	require.ErrorIs(t, err, ErrValueOverflow)
}

func TestWrappedExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)

	// Exactly the buffer plus 100 seconds of life left.
	expiry, err := wrappedExpiry(&types.InnerInvoice{
		Timestamp: now.Unix(),
		Expiry:    ExpiryBuffer + 100,
	}, now)
	require.NoError(t, err)
	require.EqualValues(t, 100, expiry)

	// One second short of the buffer.
	_, err = wrappedExpiry(&types.InnerInvoice{
		Timestamp: now.Unix(),
		Expiry:    ExpiryBuffer - 1,
	}, now)
	require.ErrorIs(t, err, ErrExpirationTooClose)

	// The arithmetic is relative to the invoice timestamp, not to the
	// wall clock: an invoice dated in the future keeps its full life.
	expiry, err = wrappedExpiry(&types.InnerInvoice{
		Timestamp: now.Unix() + 600,
		Expiry:    300,
	}, now)
	require.NoError(t, err)
	require.EqualValues(t, 600, expiry)

	// A declared expiry beyond the cap is clamped to the cap.
	expiry, err = wrappedExpiry(&types.InnerInvoice{
		Timestamp: now.Unix(),
		Expiry:    MaxExpiry + 1000,
	}, now)
	require.NoError(t, err)
	require.EqualValues(t, MaxExpiry-ExpiryBuffer, expiry)
}
