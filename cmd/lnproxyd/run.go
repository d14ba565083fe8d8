package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nodlAndHodl/lnproxy"
	"github.com/nodlAndHodl/lnproxy/common"
	"github.com/nodlAndHodl/lnproxy/lnd"
)

var runCommand = &cli.Command{
	Name:   "run",
	Action: runAction,
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	err = initLogger(
		cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.WithCaller,
	)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		log.Infof("Press ctrl-c to exit")

		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGINT,
			syscall.SIGTERM)

		select {
		case <-sigint:
			return errors.New("user requested termination")

		case <-ctx.Done():
			return nil
		}
	})

	instServer := initInstrumentationServer(cfg.InstrumentationAddress)

	group.Go(func() error {
		log.Infow("Instrumentation HTTP server starting",
			"instrumentationAddress", instServer.Addr)

		return instServer.ListenAndServe()
	})

	group.Go(func() error {
		<-ctx.Done()

		log.Infow("Instrumentation server stopping")

		return instServer.Close()
	})

	group.Go(func() error {
		return run(ctx, cfg)
	})

	return group.Wait()
}

func run(ctx context.Context, cfg *Config) error {
	gateway, network, err := initLndClient(ctx, &cfg.Lnd)
	if err != nil {
		return err
	}
	defer gateway.Close()

	log.Infow("Proxy starting",
		"node", gateway.PubKey(),
		"network", network.Name)

	wrapper := lnproxy.NewWrapper(&lnproxy.WrapperConfig{
		Gateway: gateway,
		Clock:   clock.NewDefaultClock(),
		Logger:  log,
	})

	apiServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           newServer(wrapper, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Infow("Wrap api listening",
			"listenAddress", apiServer.Addr)

		err := apiServer.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	})

	group.Go(func() error {
		<-ctx.Done()

		log.Infof("Stopping wrap api")

		return apiServer.Close()
	})

	return group.Wait()
}

func initLndClient(ctx context.Context, cfg *LndConfig) (*lnd.Client,
	*chaincfg.Params, error) {

	network, err := network(cfg.Network)
	if err != nil {
		return nil, nil, err
	}

	pubKey, err := common.NewPubKeyFromStr(cfg.PubKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse pubkey %v: %v",
			cfg.PubKey, err)
	}

	client, err := lnd.NewClient(ctx, lnd.Config{
		TlsCertPath:  cfg.TlsCertPath,
		MacaroonPath: cfg.MacaroonPath,
		LndUrl:       cfg.LndUrl,
		Logger:       log,
		PubKey:       pubKey,
		Network:      network,
	})
	if err != nil {
		return nil, nil, err
	}

	return client, network, nil
}

func network(network string) (*chaincfg.Params, error) {
	switch network {
	case chaincfg.MainNetParams.Name:
		return &chaincfg.MainNetParams, nil

	case chaincfg.TestNet3Params.Name, "testnet":
		return &chaincfg.TestNet3Params, nil

	case chaincfg.RegressionNetParams.Name:
		return &chaincfg.RegressionNetParams, nil

	case chaincfg.SimNetParams.Name:
		return &chaincfg.SimNetParams, nil
	}

	return nil, fmt.Errorf("unsupported network %v", network)
}

func initInstrumentationServer(instAddress string) *http.Server {
	instMux := http.NewServeMux()

	// Register the Prometheus handler.
	instMux.Handle("/metrics", promhttp.Handler())

	// Register the pprof handlers manually because we aren't using the
	// default mux.
	instMux.HandleFunc("/debug/pprof", pprof.Index)
	instMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	instMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	instMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	instMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	instMux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	instMux.Handle("/debug/pprof/heap", pprof.Handler("heap"))

	return &http.Server{
		Addr:    instAddress,
		Handler: instMux,

		// Even though this server should only be exposed to trusted
		// clients, this mitigates slowloris-like DoS attacks.
		ReadHeaderTimeout: 10 * time.Second,
	}
}
