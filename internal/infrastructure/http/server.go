package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"

	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"
)

type Server struct {
	conv *application.ConversionService
	txs  *application.TransactionService

	ping           func(ctx context.Context) error
	metrics        http.Handler
	requestTimeout time.Duration
	rateLimit      int
	slowRequest    time.Duration
}

func NewServer(conv *application.ConversionService, txs *application.TransactionService) *Server {
	return &Server{conv: conv, txs: txs}
}

// SetReadyCheck installs the dependency check behind /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

func (s *Server) SetMetricsHandler(h http.Handler) { s.metrics = h }

func (s *Server) SetRequestTimeout(d time.Duration) { s.requestTimeout = d }

// SetRateLimit caps /api/v1 at perMin requests per client IP. Zero disables it.
func (s *Server) SetRateLimit(perMin int) { s.rateLimit = perMin }

// SetSlowRequestThreshold makes the access log warn about requests at or above d.
func (s *Server) SetSlowRequestThreshold(d time.Duration) { s.slowRequest = d }

type transactionJSON struct {
	ID           string `json:"id"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	FromValue    string `json:"from_value"`
	ToValue      string `json:"to_value"`
	Rate         string `json:"rate"`
	Timestamp    string `json:"timestamp"`
}

func toTransactionJSON(t domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:           t.ID,
		FromCurrency: string(t.From),
		ToCurrency:   string(t.To),
		FromValue:    t.FromValue.String(),
		ToValue:      t.ToValue.String(),
		Rate:         t.Rate.String(),
		Timestamp:    t.Timestamp.UTC().Format(time.RFC3339),
	}
}

type createTransactionRequest struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	FromValue    json.RawMessage `json:"from_value"`
}

type createTransactionResponse struct {
	Transaction transactionJSON `json:"transaction"`
	Message     string          `json:"message"`
}

func (s *Server) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	amount, err := parseAmount(body.FromValue)
	if err != nil {
		fail(w, r, err)
		return
	}
	req := domain.ConversionRequest{
		From:   domain.ParseCode(body.FromCurrency),
		To:     domain.ParseCode(body.ToCurrency),
		Amount: amount,
	}
	tx, err := s.txs.Create(r.Context(), req, r.Header.Get("X-Idempotency-Key"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{
		Transaction: toTransactionJSON(tx),
		Message:     "Transaction created successfully",
	})
}

type pageMeta struct {
	CurrentPage int  `json:"current_page"`
	NextPage    *int `json:"next_page"`
	PrevPage    *int `json:"prev_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
}

type listTransactionsResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Meta         pageMeta          `json:"meta"`
}

func optionalPage(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, perPage := 1, application.DefaultPerPage
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		badRequest(w, "invalid page parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "per_page", r.URL.Query(), &perPage); err != nil {
		badRequest(w, "invalid per_page parameter")
		return
	}
	if perPage <= 0 {
		perPage = application.DefaultPerPage
	}

	p, err := s.txs.List(r.Context(), page, perPage)
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := listTransactionsResponse{
		Transactions: make([]transactionJSON, 0, len(p.Items)),
		Meta: pageMeta{
			CurrentPage: p.Page,
			NextPage:    optionalPage(p.NextPage()),
			PrevPage:    optionalPage(p.PrevPage()),
			TotalPages:  p.TotalPages(),
			TotalCount:  p.TotalCount,
		},
	}
	for _, t := range p.Items {
		resp.Transactions = append(resp.Transactions, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

type conversionJSON struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	FromValue    string `json:"from_value"`
	ToValue      string `json:"to_value"`
	Rate         string `json:"rate"`
	Timestamp    string `json:"timestamp"`
}

// GetConversion converts without persisting anything.
func (s *Server) GetConversion(w http.ResponseWriter, r *http.Request) {
	var from, to, amount string
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dest *string
	}{{"from", &from}, {"to", &to}, {"amount", &amount}} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			badRequest(w, "invalid "+p.name+" parameter")
			return
		}
	}
	value, err := parseAmountText(amount)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.conv.Convert(r.Context(), domain.ConversionRequest{
		From:   domain.ParseCode(from),
		To:     domain.ParseCode(to),
		Amount: value,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionJSON{
		FromCurrency: string(res.From),
		ToCurrency:   string(res.To),
		FromValue:    res.FromAmount.String(),
		ToValue:      res.ToAmount.String(),
		Rate:         res.Rate.String(),
		Timestamp:    res.ComputedAt.UTC().Format(time.RFC3339),
	})
}

// parseAmount accepts a JSON number or a numeric string. A missing value is zero and
// left for the conversion validation to reject.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	switch {
	case s == "null":
		s = ""
	case strings.HasPrefix(s, `"`):
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, domain.ValidationFailed("Amount is not a number")
		}
	}
	return parseAmountText(s)
}

func parseAmountText(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.ValidationFailed("Amount is not a number")
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
