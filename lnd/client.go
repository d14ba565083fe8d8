package lnd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/hashicorp/go-version"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lnrpc/routerrpc"
	"github.com/lightningnetwork/lnd/lnrpc/verrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nodlAndHodl/lnproxy"
	"github.com/nodlAndHodl/lnproxy/common"
	"github.com/nodlAndHodl/lnproxy/types"
)

// Client is the gateway the wrap engine talks to.
var _ lnproxy.Gateway = (*Client)(nil)

// Hold invoices and the payment apis used here are present from this version
// on.
var minRequiredLndVersion, _ = version.NewSemver("v0.15.0-beta")

// Config contains the connection parameters for an lnd node.
type Config struct {
	// Connection
	TlsCertPath  string
	MacaroonPath string
	LndUrl       string
	Network      *chaincfg.Params
	PubKey       common.PubKey

	Logger *zap.SugaredLogger
}

// Client exposes the node capabilities the wrap engine needs. It implements
// lnproxy.Gateway.
type Client struct {
	cfg    Config
	logger *zap.SugaredLogger

	grpcClient     *grpc.ClientConn
	lnClient       lnrpc.LightningClient
	verClient      verrpc.VersionerClient
	routerClient   routerrpc.RouterClient
	invoicesClient invoicesrpc.InvoicesClient

	configCheckPassed bool
	configCheckLock   sync.Mutex
}

// NewClient connects to the configured lnd node.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	logger := cfg.Logger.With("node", cfg.PubKey.String())

	conn, err := loadGrpcConn(
		cfg.TlsCertPath, cfg.MacaroonPath, cfg.LndUrl,
	)
	if err != nil {
		return nil, err
	}

	client := &Client{
		cfg:    cfg,
		logger: logger,

		grpcClient:     conn,
		lnClient:       lnrpc.NewLightningClient(conn),
		verClient:      verrpc.NewVersionerClient(conn),
		routerClient:   routerrpc.NewRouterClient(conn),
		invoicesClient: invoicesrpc.NewInvoicesClient(conn),
	}

	// Test the lnd connection if it is available.
	if err := client.tryValidateConfig(ctx); err != nil {
		logger.Warnw("Node unavailable or misconfigured",
			"err", err)
	}

	return client, nil
}

func (c *Client) tryValidateConfig(ctx context.Context) error {
	// Obtain lock because validation can be triggered from multiple
	// goroutines.
	c.configCheckLock.Lock()
	defer c.configCheckLock.Unlock()

	// Only validate the config once.
	if c.configCheckPassed {
		return nil
	}

	// Request version info.
	ver, err := c.verClient.GetVersion(ctx, &verrpc.VersionRequest{})
	if err != nil {
		return err
	}

	// Verify version against minimum requirement.
	lndVersion, err := version.NewSemver(ver.Version)
	if err != nil {
		return err
	}

	if !lndVersion.GreaterThanOrEqual(minRequiredLndVersion) {
		return fmt.Errorf("connected to lnd version %v, "+
			"but minimum required version is %v",
			lndVersion, minRequiredLndVersion)
	}

	// Request node info.
	info, err := c.lnClient.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return err
	}

	// Verify chain.
	lndNetwork := info.Chains[0].Network
	networkStr := c.cfg.Network.Name
	if networkStr == "testnet3" {
		networkStr = "testnet"
	}
	if lndNetwork != networkStr {
		return fmt.Errorf("unexpected network: expected %v, "+
			"connected to %v", networkStr, lndNetwork)
	}

	// Verify pubkey.
	pubKey, err := common.NewPubKeyFromStr(info.IdentityPubkey)
	if err != nil {
		return fmt.Errorf("invalid identity pubkey: %w", err)
	}
	if pubKey != c.cfg.PubKey {
		return fmt.Errorf("unexpected pubkey: expected %v, "+
			"connected to %v", c.cfg.PubKey, pubKey)
	}

	// Set flag to prevent checking again.
	c.configCheckPassed = true

	return nil
}

// PubKey returns the identity key of the node.
func (c *Client) PubKey() common.PubKey {
	return c.cfg.PubKey
}

// Network returns the network the node is running on.
func (c *Client) Network() *chaincfg.Params {
	return c.cfg.Network
}

func mapGrpcError(err error) error {
	switch status.Code(err) {
	case codes.OK:
		return nil

	case codes.DeadlineExceeded:
		return context.DeadlineExceeded

	case codes.Canceled:
		return context.Canceled

	default:
		return err
	}
}

// Decode decodes a payment request into the strongly typed inner invoice.
func (c *Client) Decode(ctx context.Context, paymentRequest string) (
	*types.InnerInvoice, error) {

	resp, err := c.lnClient.DecodePayReq(ctx, &lnrpc.PayReqString{
		PayReq: paymentRequest,
	})
	if err := mapGrpcError(err); err != nil {
		return nil, err
	}

	hash, err := common.HexToHash(resp.PaymentHash)
	if err != nil {
		return nil, fmt.Errorf("invalid payment hash: %w", err)
	}

	dest, err := common.NewPubKeyFromStr(resp.Destination)
	if err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}

	var descHash []byte
	if resp.DescriptionHash != "" {
		descHash, err = common.HexToBytes(resp.DescriptionHash)
		if err != nil {
			return nil, fmt.Errorf("invalid description hash: %w",
				err)
		}
	}

	features := make(map[uint32]struct{}, len(resp.Features))
	for bit := range resp.Features {
		features[bit] = struct{}{}
	}

	return &types.InnerInvoice{
		PaymentHash:       hash,
		Destination:       dest,
		AmountMsat:        lnwire.MilliSatoshi(resp.NumMsat),
		Timestamp:         resp.Timestamp,
		Expiry:            resp.Expiry,
		Description:       resp.Description,
		DescriptionHash:   descHash,
		MinFinalCltvDelta: resp.CltvExpiry,
		Features:          features,
	}, nil
}

// EstimateRouteFee asks the node for a routing fee and time lock estimate to
// the given destination.
func (c *Client) EstimateRouteFee(ctx context.Context, dest common.PubKey,
	amtMsat lnwire.MilliSatoshi) (*types.RouteFeeEstimate, error) {

	resp, err := c.routerClient.EstimateRouteFee(
		ctx, &routerrpc.RouteFeeRequest{
			Dest:   dest[:],
			AmtSat: int64(amtMsat.ToSatoshis()),
		},
	)
	if err := mapGrpcError(err); err != nil {
		return nil, err
	}

	return &types.RouteFeeEstimate{
		RoutingFeeMsat: lnwire.MilliSatoshi(resp.RoutingFeeMsat),
		TimeLockDelay:  resp.TimeLockDelay,
	}, nil
}

// AddHoldInvoice creates a hold invoice on the node and returns its payment
// request.
func (c *Client) AddHoldInvoice(ctx context.Context,
	invoice *types.HoldInvoice) (string, error) {

	resp, err := c.invoicesClient.AddHoldInvoice(
		ctx, &invoicesrpc.AddHoldInvoiceRequest{
			Memo:            invoice.Memo,
			DescriptionHash: invoice.DescriptionHash,
			Hash:            invoice.PaymentHash[:],
			ValueMsat:       int64(invoice.ValueMsat),
			CltvExpiry:      invoice.CltvExpiry,
			Expiry:          invoice.Expiry,
		},
	)
	if err := mapGrpcError(err); err != nil {
		return "", err
	}

	return resp.PaymentRequest, nil
}

// SubscribeInvoiceState opens a state stream for a single invoice and returns
// a receive closure for it.
func (c *Client) SubscribeInvoiceState(ctx context.Context,
	hash lntypes.Hash) (func() (types.InvoiceState, error), error) {

	stream, err := c.invoicesClient.SubscribeSingleInvoice(
		ctx, &invoicesrpc.SubscribeSingleInvoiceRequest{
			RHash: hash[:],
		},
	)
	if err := mapGrpcError(err); err != nil {
		return nil, err
	}

	return func() (types.InvoiceState, error) {
		invoice, err := stream.Recv()
		if err := mapGrpcError(err); err != nil {
			return 0, err
		}

		state, err := invoiceState(invoice.State)
		if err != nil {
			return 0, err
		}

		return state, nil
	}, nil
}

func invoiceState(state lnrpc.Invoice_InvoiceState) (types.InvoiceState,
	error) {

	switch state {
	case lnrpc.Invoice_OPEN:
		return types.InvoiceStateOpen, nil

	case lnrpc.Invoice_ACCEPTED:
		return types.InvoiceStateAccepted, nil

	case lnrpc.Invoice_SETTLED:
		return types.InvoiceStateSettled, nil

	case lnrpc.Invoice_CANCELED:
		return types.InvoiceStateCanceled, nil

	default:
		return 0, fmt.Errorf("unknown invoice state %v", state)
	}
}

// SendPayment pays the given payment request and returns a receive closure
// for the payment updates.
func (c *Client) SendPayment(ctx context.Context, paymentRequest string,
	feeLimitMsat lnwire.MilliSatoshi, cltvLimit uint64,
	timeout time.Duration) (func() (*types.PaymentUpdate, error), error) {

	stream, err := c.routerClient.SendPaymentV2(
		ctx, &routerrpc.SendPaymentRequest{
			PaymentRequest: paymentRequest,
			FeeLimitMsat:   int64(feeLimitMsat),
			CltvLimit:      int32(cltvLimit),
			TimeoutSeconds: int32(timeout / time.Second),
		},
	)
	if err := mapGrpcError(err); err != nil {
		return nil, err
	}

	return func() (*types.PaymentUpdate, error) {
		payment, err := stream.Recv()
		if err := mapGrpcError(err); err != nil {
			return nil, err
		}

		return paymentUpdate(payment)
	}, nil
}

func paymentUpdate(payment *lnrpc.Payment) (*types.PaymentUpdate, error) {
	switch payment.Status {
	case lnrpc.Payment_SUCCEEDED:
		preimage, err := common.HexToPreimage(payment.PaymentPreimage)
		if err != nil {
			return nil, fmt.Errorf("invalid preimage: %w", err)
		}

		return &types.PaymentUpdate{
			Status:   types.PaymentStatusSucceeded,
			Preimage: preimage,
		}, nil

	case lnrpc.Payment_FAILED:
		return &types.PaymentUpdate{
			Status:        types.PaymentStatusFailed,
			FailureReason: payment.FailureReason.String(),
		}, nil

	default:
		return &types.PaymentUpdate{
			Status: types.PaymentStatusInFlight,
		}, nil
	}
}

// SettleInvoice settles the hold invoice locked to the hash of the given
// preimage.
func (c *Client) SettleInvoice(ctx context.Context,
	preimage lntypes.Preimage) error {

	_, err := c.invoicesClient.SettleInvoice(
		ctx, &invoicesrpc.SettleInvoiceMsg{
			Preimage: preimage[:],
		},
	)

	return mapGrpcError(err)
}

// CancelInvoice cancels the hold invoice with the given payment hash.
func (c *Client) CancelInvoice(ctx context.Context,
	hash lntypes.Hash) error {

	_, err := c.invoicesClient.CancelInvoice(
		ctx, &invoicesrpc.CancelInvoiceMsg{
			PaymentHash: hash[:],
		},
	)

	return mapGrpcError(err)
}

// Close tears down the node connection.
func (c *Client) Close() error {
	return c.grpcClient.Close()
}
