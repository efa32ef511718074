package slotserver

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adslot-experiment/adslot/internal/ledger"
	"github.com/adslot-experiment/adslot/internal/slot"
)

// Server exposes one slot mechanism over HTTP.
type Server struct {
	mech     *slot.Mechanism
	ledger   *ledger.StateLedger
	router   *mux.Router
	receipts *slot.ReceiptStore
	httpSrv  *http.Server
}

func NewServer(mech *slot.Mechanism, led *ledger.StateLedger) *Server {
	s := &Server{
		mech:     mech,
		ledger:   led,
		router:   mux.NewRouter(),
		receipts: slot.NewReceiptStore(),
	}
	s.setupRoutes()
	return s
}

// Router returns the HTTP router for testing
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	// Slot endpoints
	s.router.HandleFunc("/price", s.handleGetPrice).Methods("GET")
	s.router.HandleFunc("/slot", s.handleGetSlot).Methods("GET")
	s.router.HandleFunc("/slot/set", s.handleSet).Methods("POST")
	s.router.HandleFunc("/slot/reclaim", s.handleReclaim).Methods("POST")
	s.router.HandleFunc("/receipt/{id}", s.handleGetReceipt).Methods("GET")

	// Ledger endpoints
	s.router.HandleFunc("/balance/{address}", s.handleGetBalance).Methods("GET")
	s.router.HandleFunc("/faucet", s.handleFaucet).Methods("POST")

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Slot service starting on %s", addr)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
