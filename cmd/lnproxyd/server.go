package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nodlAndHodl/lnproxy"
	"github.com/nodlAndHodl/lnproxy/types"
)

// server is the http front door for the wrap engine. It only binds json and
// maps errors, all protocol logic lives in the engine.
type server struct {
	wrapper *lnproxy.Wrapper
	logger  *zap.SugaredLogger
}

func newServer(wrapper *lnproxy.Wrapper, logger *zap.SugaredLogger) http.Handler {
	s := &server{
		wrapper: wrapper,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/wrap", s.handleWrap)

	return mux
}

type wrapRequest struct {
	Invoice         string `json:"invoice"`
	Description     string `json:"description"`
	DescriptionHash string `json:"description_hash"`
	RoutingMsat     string `json:"routing_msat"`
}

type wrapResponse struct {
	ProxyInvoice string `json:"proxy_invoice"`
}

type errorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// requestErrors fail because of the request contents, not because of a node
// or proxy problem.
var requestErrors = []error{
	lnproxy.ErrAmpNotSupported,
	lnproxy.ErrConflictingDescription,
	lnproxy.ErrMissingAmount,
	lnproxy.ErrCltvTooHigh,
	lnproxy.ErrValueOverflow,
	lnproxy.ErrRoutingBudgetTooLow,
	lnproxy.ErrExpirationTooClose,
}

func (s *server) handleWrap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed",
			http.StatusMethodNotAllowed)

		return
	}

	var req wrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	if req.Invoice == "" {
		writeError(w, http.StatusBadRequest,
			errors.New("invoice not specified"))

		return
	}

	s.logger.Infow("Wrap requested",
		"invoice", req.Invoice)

	proxyInvoice, err := s.wrapper.WrapInvoice(
		r.Context(), &types.WrapRequest{
			Invoice:         req.Invoice,
			Description:     req.Description,
			DescriptionHash: req.DescriptionHash,
			RoutingMsat:     req.RoutingMsat,
		},
	)
	if err != nil {
		s.logger.Errorw("Wrap failed",
			"err", err)

		writeError(w, errorStatus(err), err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&wrapResponse{
		ProxyInvoice: proxyInvoice,
	})
}

func errorStatus(err error) int {
	for _, reqErr := range requestErrors {
		if errors.Is(err, reqErr) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&errorResponse{
		Status: "ERROR",
		Reason: err.Error(),
	})
}
