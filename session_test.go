package lnproxy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nodlAndHodl/lnproxy/common"
	"github.com/nodlAndHodl/lnproxy/test"
	"github.com/nodlAndHodl/lnproxy/types"
)

type sessionTestContext struct {
	t       *testing.T
	gateway *fakeGateway
	session *settlementSession

	estimates int
	payments  int
	settles   []lntypes.Preimage
	cancels   []lntypes.Hash
}

func newSessionTestContext(t *testing.T) *sessionTestContext {
	logger, _ := zap.NewDevelopment()

	c := &sessionTestContext{t: t}

	c.gateway = &fakeGateway{
		estimateRouteFee: func(common.PubKey, lnwire.MilliSatoshi) (
			*types.RouteFeeEstimate, error) {

			c.estimates++

			return &types.RouteFeeEstimate{
				RoutingFeeMsat: 50,
				TimeLockDelay:  100,
			}, nil
		},
		settleInvoice: func(preimage lntypes.Preimage) error {
			c.settles = append(c.settles, preimage)

			return nil
		},
		cancelInvoice: func(hash lntypes.Hash) error {
			c.cancels = append(c.cancels, hash)

			return nil
		},
	}

	c.session = newSettlementSession(&sessionConfig{
		Gateway:        c.gateway,
		Logger:         logger.Sugar(),
		Inner:          testInner(),
		PaymentRequest: "lnbc1inner",
		FeeBudgetMsat:  1125,
	})

	return c
}

// scriptStates sets the invoice state stream the session consumes.
func (c *sessionTestContext) scriptStates(states ...types.InvoiceState) {
	c.gateway.subscribe = func(lntypes.Hash) (
		func() (types.InvoiceState, error), error) {

		return stateStream(states...), nil
	}
}

// scriptPayment sets the payment update stream for the forwarded payment and
// counts the attempts.
func (c *sessionTestContext) scriptPayment(updates ...*types.PaymentUpdate) {
	c.gateway.sendPayment = func(_ string,
		feeLimitMsat lnwire.MilliSatoshi, cltvLimit uint64,
		timeout time.Duration) (func() (*types.PaymentUpdate, error),
		error) {

		c.payments++

		// The forwarded payment carries the wrap-time fee budget, a
		// freshly estimated time lock limit and the fixed timeout.
		require.Equal(c.t, lnwire.MilliSatoshi(1125), feeLimitMsat)
		require.Equal(c.t, uint64(200), cltvLimit)
		require.Equal(c.t, paymentTimeout, timeout)

		return paymentStream(updates...), nil
	}
}

func (c *sessionTestContext) run() sessionState {
	return c.session.run(context.Background())
}

func TestSessionSettlesOnSuccess(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	c.scriptStates(
		types.InvoiceStateOpen,
		types.InvoiceStateAccepted,
		types.InvoiceStateSettled,
	)
	c.scriptPayment(
		&types.PaymentUpdate{Status: types.PaymentStatusInFlight},
		&types.PaymentUpdate{
			Status:   types.PaymentStatusSucceeded,
			Preimage: testPreimage,
		},
	)

	require.Equal(t, sessionSettled, c.run())

	// Settled exactly once, with the preimage revealed by the forwarded
	// payment, and never canceled.
	require.Equal(t, []lntypes.Preimage{testPreimage}, c.settles)
	require.Empty(t, c.cancels)
	require.Equal(t, 1, c.payments)
}

func TestSessionCancelsOnFailure(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	c.scriptStates(
		types.InvoiceStateAccepted,
		types.InvoiceStateCanceled,
	)
	c.scriptPayment(&types.PaymentUpdate{
		Status:        types.PaymentStatusFailed,
		FailureReason: "FAILURE_REASON_NO_ROUTE",
	})

	require.Equal(t, sessionCanceled, c.run())

	require.Empty(t, c.settles)
	require.Equal(t, []lntypes.Hash{testHash}, c.cancels)
}

func TestSessionForwardsOnlyOnce(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	// A second acceptance must not trigger a second payment.
	c.scriptStates(
		types.InvoiceStateAccepted,
		types.InvoiceStateAccepted,
	)
	c.scriptPayment(&types.PaymentUpdate{
		Status:   types.PaymentStatusSucceeded,
		Preimage: testPreimage,
	})

	require.Equal(t, sessionSettled, c.run())

	require.Equal(t, 1, c.payments)
	require.Len(t, c.settles, 1)
}

func TestSessionIgnoresOutOfBandEvents(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	// An externally canceled invoice is logged only. The session never
	// forwarded, so it must not settle or cancel anything.
	c.scriptStates(
		types.InvoiceStateOpen,
		types.InvoiceStateCanceled,
	)

	require.Equal(t, sessionAbandoned, c.run())

	require.Empty(t, c.settles)
	require.Empty(t, c.cancels)
	require.Zero(t, c.payments)
}

func TestSessionSurvivesForwardError(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	// The fresh estimate at forward time fails. The error is contained
	// and the session keeps consuming the stream.
	c.gateway.estimateRouteFee = func(common.PubKey,
		lnwire.MilliSatoshi) (*types.RouteFeeEstimate, error) {

		return nil, errors.New("node unavailable")
	}
	c.scriptStates(
		types.InvoiceStateAccepted,
		types.InvoiceStateOpen,
	)

	require.Equal(t, sessionAbandoned, c.run())

	require.Empty(t, c.settles)
	require.Empty(t, c.cancels)
}

func TestSessionSubscriptionFailure(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	c.gateway.subscribe = func(lntypes.Hash) (
		func() (types.InvoiceState, error), error) {

		return nil, errors.New("node unavailable")
	}

	require.Equal(t, sessionAbandoned, c.run())
}

func TestSessionCancelFailureIsNonFatal(t *testing.T) {
	defer test.Timeout()()

	c := newSessionTestContext(t)

	c.gateway.cancelInvoice = func(lntypes.Hash) error {
		return errors.New("invoice not found")
	}
	c.scriptStates(types.InvoiceStateAccepted)
	c.scriptPayment(&types.PaymentUpdate{
		Status: types.PaymentStatusFailed,
	})

	// The failed cancel is logged, the session still ends canceled and
	// never settles.
	require.Equal(t, sessionCanceled, c.run())
	require.Empty(t, c.settles)
}
