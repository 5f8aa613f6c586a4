package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quantfade/longshot/internal/ledger"
	"go.uber.org/zap"
)

// BookProvider exposes the current paper book.
type BookProvider interface {
	Snapshot() ledger.Book
}

// BreakerStatusProvider exposes circuit breaker state.
type BreakerStatusProvider interface {
	IsEnabled() bool
}

// BookHandler handles HTTP requests for book data.
type BookHandler struct {
	book    BookProvider
	breaker BreakerStatusProvider
	logger  *zap.Logger
}

// NewBookHandler creates a new book handler.
func NewBookHandler(book BookProvider, breaker BreakerStatusProvider, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		book:    book,
		breaker: breaker,
		logger:  logger,
	}
}

// BookResponse represents the HTTP response for book data.
type BookResponse struct {
	Cash           float64   `json:"cash"`
	RealizedPnL    float64   `json:"realized_pnl"`
	Equity         float64   `json:"equity"`
	OpenPositions  int       `json:"open_positions"`
	OpenCost       float64   `json:"open_cost"`
	BreakerEnabled *bool     `json:"breaker_enabled,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PositionsResponse represents the HTTP response for open positions.
type PositionsResponse struct {
	Count     int               `json:"count"`
	Positions []ledger.Position `json:"positions"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleBook handles GET /api/book requests.
func (h *BookHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	book := h.book.Snapshot()

	response := BookResponse{
		Cash:          book.Cash,
		RealizedPnL:   book.RealizedPnL,
		Equity:        book.Equity(),
		OpenPositions: book.OpenCount(),
		OpenCost:      book.OpenCost(),
		UpdatedAt:     book.UpdatedAt,
	}

	if h.breaker != nil {
		enabled := h.breaker.IsEnabled()
		response.BreakerEnabled = &enabled
	}

	h.writeJSON(w, response)
}

// HandlePositions handles GET /api/positions requests.
func (h *BookHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	open := h.book.Snapshot().OpenPositions()

	h.writeJSON(w, PositionsResponse{
		Count:     len(open),
		Positions: open,
	})
}

func (h *BookHandler) writeJSON(w http.ResponseWriter, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *BookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
