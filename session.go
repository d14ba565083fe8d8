package lnproxy

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"go.uber.org/zap"

	"github.com/nodlAndHodl/lnproxy/types"
)

// paymentTimeout is the time limit for the forwarded payment.
const paymentTimeout = 600 * time.Second

// sessionState tracks the progress of a settlement session.
type sessionState int

const (
	// sessionWaitingForAcceptance means the wrapped invoice has not been
	// accepted yet.
	sessionWaitingForAcceptance sessionState = iota

	// sessionForwarding means acceptance was seen and the forwarded
	// payment has been kicked off.
	sessionForwarding

	// sessionSettled means the forwarded payment succeeded and the
	// wrapped invoice was settled with its preimage.
	sessionSettled

	// sessionCanceled means the forwarded payment failed and the wrapped
	// invoice was canceled.
	sessionCanceled

	// sessionAbandoned means the state stream closed without the session
	// reaching a resolving event.
	sessionAbandoned
)

var sessionStateLabels = map[sessionState]string{
	sessionWaitingForAcceptance: "WAITING_FOR_ACCEPTANCE",
	sessionForwarding:           "FORWARDING",
	sessionSettled:              "SETTLED",
	sessionCanceled:             "CANCELED",
	sessionAbandoned:            "ABANDONED",
}

func (s sessionState) String() string {
	return sessionStateLabels[s]
}

type sessionConfig struct {
	Gateway Gateway
	Logger  *zap.SugaredLogger

	// Inner is the invoice that the payment is forwarded to.
	Inner *types.InnerInvoice

	// PaymentRequest is the original payment request string of the inner
	// invoice.
	PaymentRequest string

	// FeeBudgetMsat is the fee limit for the forwarded payment, computed
	// at wrap time.
	FeeBudgetMsat lnwire.MilliSatoshi
}

// settlementSession watches a single wrapped invoice and completes the swap.
// It consumes the invoice state stream, forwards the payment on acceptance
// and then either settles the wrapped invoice with the revealed preimage or
// cancels it. Sessions share no state with each other or with the wrap
// engine; each one is driven by its own stream.
type settlementSession struct {
	gateway Gateway
	logger  *zap.SugaredLogger

	inner          *types.InnerInvoice
	paymentRequest string
	feeBudgetMsat  lnwire.MilliSatoshi

	state sessionState
}

func newSettlementSession(cfg *sessionConfig) *settlementSession {
	return &settlementSession{
		gateway: cfg.Gateway,
		logger: cfg.Logger.With(
			"hash", cfg.Inner.PaymentHash.String(),
		),
		inner:          cfg.Inner,
		paymentRequest: cfg.PaymentRequest,
		feeBudgetMsat:  cfg.FeeBudgetMsat,
		state:          sessionWaitingForAcceptance,
	}
}

// run consumes the invoice state stream until it closes. Errors while
// handling a single event are logged and do not stop the stream; a session
// must keep watching its invoice for as long as the node reports on it. The
// final session state is returned.
func (s *settlementSession) run(ctx context.Context) sessionState {
	recv, err := s.gateway.SubscribeInvoiceState(
		ctx, s.inner.PaymentHash,
	)
	if err != nil {
		s.logger.Errorw("Invoice state subscription failed",
			"err", err)

		s.state = sessionAbandoned

		return s.state
	}

	for {
		state, err := recv()
		if err != nil {
			// Stream closed node-side. If the session did not
			// resolve the invoice, it never will.
			if s.state == sessionWaitingForAcceptance ||
				s.state == sessionForwarding {

				s.state = sessionAbandoned
			}

			s.logger.Infow("Invoice state stream ended",
				"err", err,
				"state", s.state)

			return s.state
		}

		s.handleStateEvent(ctx, state)
	}
}

// handleStateEvent processes one invoice state event. Only the first
// acceptance triggers forwarding, every other event is informational: the
// only mutation paths into SETTLED and CANCELED are this session's own calls
// or an external cancelation.
func (s *settlementSession) handleStateEvent(ctx context.Context,
	state types.InvoiceState) {

	if state == types.InvoiceStateAccepted &&
		s.state == sessionWaitingForAcceptance {

		s.logger.Infow("Invoice accepted, forwarding payment")

		s.state = sessionForwarding

		if err := s.forward(ctx); err != nil {
			s.logger.Errorw("Forward payment failed",
				"err", err)
		}

		return
	}

	s.logger.Infow("Invoice state event",
		"invoiceState", state,
		"state", s.state)
}

// forward pays the inner invoice and resolves the wrapped invoice based on
// the outcome. The fee limit is the budget computed at wrap time; the time
// lock limit is recomputed from a fresh route estimate because conditions may
// have changed since the invoice was wrapped.
func (s *settlementSession) forward(ctx context.Context) error {
	estimate, err := s.gateway.EstimateRouteFee(
		ctx, s.inner.Destination, s.inner.AmountMsat,
	)
	if err != nil {
		return err
	}

	cltvLimit, err := cltvExpiry(estimate)
	if err != nil {
		return err
	}

	recv, err := s.gateway.SendPayment(
		ctx, s.paymentRequest, s.feeBudgetMsat, cltvLimit,
		paymentTimeout,
	)
	if err != nil {
		return err
	}

	for {
		update, err := recv()
		if err != nil {
			return err
		}

		switch update.Status {
		case types.PaymentStatusFailed:
			s.logger.Warnw("Forwarded payment failed",
				"reason", update.FailureReason)

			s.cancel(ctx)

			return nil

		case types.PaymentStatusSucceeded:
			s.logger.Infow("Forwarded payment succeeded")

			s.settle(ctx, update.Preimage)

			return nil

		default:
			s.logger.Debugw("Forwarded payment update",
				"status", update.Status)
		}
	}
}

// settle releases the held funds to this node. It requires the preimage
// revealed by the successful forwarded payment, which is the proof that the
// original payee has been paid.
func (s *settlementSession) settle(ctx context.Context,
	preimage lntypes.Preimage) {

	s.state = sessionSettled

	if err := s.gateway.SettleInvoice(ctx, preimage); err != nil {
		// Not retried. The node knows the preimage of an accepted
		// invoice is out, an operator has to resolve this manually.
		s.logger.Errorw("Settle invoice failed",
			"err", err)

		return
	}

	s.logger.Infow("Settled wrapped invoice")
}

// cancel gives the held funds back to the payer. Best effort: a failed
// cancelation leaves the invoice to expire on the node.
func (s *settlementSession) cancel(ctx context.Context) {
	s.state = sessionCanceled

	if err := s.gateway.CancelInvoice(
		ctx, s.inner.PaymentHash,
	); err != nil {
		s.logger.Errorw("Cancel invoice failed",
			"err", err)

		return
	}

	s.logger.Infow("Canceled wrapped invoice")
}
