package main

import (
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/card"
	"github.com/mcclellann/keepcard/pkg/export"
	"github.com/mcclellann/keepcard/pkg/extension"
	"github.com/mcclellann/keepcard/pkg/ledger"
	"github.com/mcclellann/keepcard/pkg/logger"
	"github.com/mcclellann/keepcard/pkg/models"
)

const dateLayout = "2006-01-02"

// Server holds the card account instance. The account is one unit of
// mutual exclusion: every append re-sorts the transaction log and rebuilds
// the statement list in place, so mu guards reads as well as writes.
type Server struct {
	mu      sync.Mutex
	account *card.Account
	cal     *calendar.Calendar
	log     *zap.Logger
}

func NewServer(cal *calendar.Calendar, cycleStartDay, graceDays int, log *zap.Logger) *Server {
	return &Server{
		account: card.New(cal, cycleStartDay, graceDays),
		cal:     cal,
		log:     log,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/transactions", s.listTransactionsHandler).Methods("GET")
	router.HandleFunc("/transactions", s.createTransactionHandler).Methods("POST")
	router.HandleFunc("/statements", s.listStatementsHandler).Methods("GET")
	router.HandleFunc("/statements/export", s.exportStatementsHandler).Methods("GET")
	router.HandleFunc("/balance-due", s.balanceDueHandler).Methods("GET")
	router.HandleFunc("/cycles", s.cyclesHandler).Methods("GET")

	router.HandleFunc("/extensions", s.listExtensionsHandler).Methods("GET")
	router.HandleFunc("/extensions", s.createExtensionHandler).Methods("POST")
	router.HandleFunc("/extensions/due", s.extensionDueHandler).Methods("GET")
	router.HandleFunc("/extensions/payments", s.allocatePaymentHandler).Methods("POST")
	router.HandleFunc("/extensions/{id}", s.getExtensionHandler).Methods("GET")
	router.HandleFunc("/extensions/{id}/payments", s.payExtensionHandler).Methods("POST")

	return router
}

func (s *Server) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		Kind          models.TransactionKind `json:"kind"`
		Amount        decimal.Decimal        `json:"amount"`
		EffectiveDate string                 `json:"effective_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	effectiveDate, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		http.Error(w, "Invalid effective_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	snapshot, err := s.account.AddTransaction(req.Kind, req.Amount, effectiveDate, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("failed to record transaction", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("transaction recorded",
		zap.String("kind", string(req.Kind)),
		zap.String("amount", req.Amount.String()),
		zap.String("effective_date", req.EffectiveDate))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snapshot)
}

func (s *Server) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.account.Transactions())
}

func (s *Server) listStatementsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.account.Statements())
}

func (s *Server) exportStatementsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="statements.xlsx"`)

	if err := export.Write(w, s.account.Snapshot(), s.account.Extensions()); err != nil {
		s.log.Error("failed to export workbook", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) balanceDueHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date, err := queryDate(r, "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := struct {
		Date       string          `json:"date"`
		BalanceDue decimal.Decimal `json:"balance_due"`
	}{
		Date:       date.Format(dateLayout),
		BalanceDue: s.account.BalanceDueAsOf(date),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) cyclesHandler(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	grace, err := queryInt(r, "grace", 21)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	count, err := queryInt(r, "count", 12)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cycles, err := ledger.GetStatementCycles(s.cal, start, grace, count)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidCycleAnchor) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cycles)
}

func (s *Server) createExtensionHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		Amount        decimal.Decimal `json:"amount"`
		EffectiveDate string          `json:"effective_date"`
		TermMonths    int             `json:"term_months"`
		APR           decimal.Decimal `json:"apr"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	effectiveDate, err := time.Parse(dateLayout, req.EffectiveDate)
	if err != nil {
		http.Error(w, "Invalid effective_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	ext, err := s.account.CreateExtension(req.Amount, effectiveDate, req.TermMonths, req.APR)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error("failed to create extension", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("extension created",
		zap.String("id", ext.ID.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("term_months", ext.TermMonths))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ext)
}

func (s *Server) listExtensionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.account.Extensions())
}

func (s *Server) getExtensionHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid extension ID", http.StatusBadRequest)
		return
	}

	ext, err := s.account.Extension(id)
	if err != nil {
		if errors.Is(err, extension.ErrNotFound) {
			http.Error(w, "Extension not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ext)
}

func (s *Server) payExtensionHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid extension ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	payment, err := s.account.PayExtension(id, req.Amount, date)
	if err != nil {
		if errors.Is(err, extension.ErrNotFound) {
			http.Error(w, "Extension not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.log.Info("extension payment applied",
		zap.String("id", id.String()),
		zap.String("amount", req.Amount.String()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(payment)
}

func (s *Server) allocatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	result := s.account.AllocateExtensionPayment(date, req.Amount)

	s.log.Info("extension payment allocated",
		zap.String("amount", req.Amount.String()),
		zap.Int("payments", len(result.Payments)),
		zap.String("remaining", result.RemainingAmount.String()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func (s *Server) extensionDueHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date, err := queryDate(r, "date")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := struct {
		Date    string          `json:"date"`
		PastDue decimal.Decimal `json:"past_due"`
		NextDue decimal.Decimal `json:"next_due"`
	}{
		Date:    date.Format(dateLayout),
		PastDue: s.account.ExtensionPastDue(date),
		NextDue: s.account.ExtensionNextDue(date),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, errors.New("missing required query parameter " + key)
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid " + key + ", expected YYYY-MM-DD")
	}
	return date, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key + ", expected a non-negative integer")
	}
	return n, nil
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	cycleStartDay := flag.Int("cycle-start-day", 15, "day of month each statement cycle starts on")
	graceDays := flag.Int("grace-days", 1, "business days after cycle close before payment is due")
	dev := flag.Bool("dev", false, "log with the human-readable development encoder")
	flag.Parse()

	var log *zap.Logger
	if *dev {
		log = logger.NewDevelopmentLogger("keepcard-api")
	} else {
		log = logger.NewLogger("keepcard-api")
	}
	defer log.Sync()

	server := NewServer(calendar.Default(), *cycleStartDay, *graceDays, log)
	router := server.routes()

	log.Info("server starting", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
