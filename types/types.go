package types

import (
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"

	"github.com/nodlAndHodl/lnproxy/common"
)

// FeatureAMP is the feature bit that marks an invoice as payable via
// atomic multi-path payments. AMP invoices cannot be wrapped, because a
// single hold invoice cannot represent a multi-shard payment.
const FeatureAMP uint32 = 30

// InnerInvoice is a decoded payment request as received from the node. It is
// the invoice that the proxy will forward a payment to.
type InnerInvoice struct {
	// PaymentHash is the hash that the outer invoice is locked to as well.
	PaymentHash lntypes.Hash

	// Destination is the node that issued the invoice.
	Destination common.PubKey

	// AmountMsat is the invoice amount. Zero means the payer chooses the
	// amount, which cannot be wrapped.
	AmountMsat lnwire.MilliSatoshi

	// Timestamp is the invoice creation time in unix seconds.
	Timestamp int64

	// Expiry is the invoice lifetime in seconds from Timestamp.
	Expiry int64

	Description     string
	DescriptionHash []byte

	// MinFinalCltvDelta is the time lock delta declared for the final hop.
	MinFinalCltvDelta int64

	// Features is the set of feature bits advertised by the invoice.
	Features map[uint32]struct{}
}

// HasFeature returns whether the invoice advertises the given feature bit.
func (i *InnerInvoice) HasFeature(bit uint32) bool {
	_, ok := i.Features[bit]

	return ok
}

// RouteFeeEstimate is the node's estimate of what it takes to reach a
// destination.
type RouteFeeEstimate struct {
	// RoutingFeeMsat is the estimated total routing fee.
	RoutingFeeMsat lnwire.MilliSatoshi

	// TimeLockDelay is the estimated time lock delay in blocks.
	TimeLockDelay int64
}

// WrapRequest is the caller input to the wrap operation.
type WrapRequest struct {
	// Invoice is the payment request to wrap.
	Invoice string

	// Description optionally overrides the memo of the wrapped invoice.
	Description string

	// DescriptionHash optionally overrides the description hash of the
	// wrapped invoice, hex-encoded. Mutually exclusive with Description.
	DescriptionHash string

	// RoutingMsat is an optional caller-specified total routing budget in
	// millisatoshi, as a decimal string.
	RoutingMsat string
}

// HoldInvoice is the creation data for the outer hold invoice.
type HoldInvoice struct {
	Memo            string
	DescriptionHash []byte

	// PaymentHash is copied from the inner invoice. A settlement of the
	// forwarded payment reveals the preimage for this hash.
	PaymentHash lntypes.Hash

	ValueMsat  lnwire.MilliSatoshi
	CltvExpiry uint64

	// Expiry is the invoice lifetime in seconds.
	Expiry int64
}

// InvoiceState mirrors the node's hold invoice lifecycle.
type InvoiceState int

const (
	InvoiceStateOpen InvoiceState = iota
	InvoiceStateAccepted
	InvoiceStateSettled
	InvoiceStateCanceled
)

var invoiceStateLabels = map[InvoiceState]string{
	InvoiceStateOpen:     "OPEN",
	InvoiceStateAccepted: "ACCEPTED",
	InvoiceStateSettled:  "SETTLED",
	InvoiceStateCanceled: "CANCELED",
}

func (s InvoiceState) String() string {
	label, ok := invoiceStateLabels[s]
	if !ok {
		return "UNKNOWN"
	}

	return label
}

// PaymentStatus is the status of a forwarded payment attempt.
type PaymentStatus int

const (
	PaymentStatusInFlight PaymentStatus = iota
	PaymentStatusSucceeded
	PaymentStatusFailed
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentStatusInFlight:  "IN_FLIGHT",
	PaymentStatusSucceeded: "SUCCEEDED",
	PaymentStatusFailed:    "FAILED",
}

func (s PaymentStatus) String() string {
	label, ok := paymentStatusLabels[s]
	if !ok {
		return "UNKNOWN"
	}

	return label
}

// PaymentUpdate is a single event from a payment stream.
type PaymentUpdate struct {
	Status PaymentStatus

	// Preimage is only valid when Status is PaymentStatusSucceeded.
	Preimage lntypes.Preimage

	// FailureReason is only set when Status is PaymentStatusFailed.
	FailureReason string
}
