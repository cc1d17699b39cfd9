package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/validation"
)

// maxImportBytes bounds CSV uploads.
const maxImportBytes = 10 << 20

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transactionService.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// AllTransactions handles GET requests to list the ledger, optionally limited to one symbol.
//
// Endpoint: GET /api/transaction[?symbol=AAPL]
// Response: 200 OK with array of model.Transaction
// Error: 400 Bad Request if the symbol is malformed
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) AllTransactions(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol != "" {
		if err := validation.ValidateSymbol(symbol); err != nil {
			respondValidationError(w, err)
			return
		}
	}

	transactions, err := h.transactionService.GetTransactions(r.Context(), symbol)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/transaction/{uuid}
// Response: 200 OK with model.Transaction
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	transaction, err := h.transactionService.GetTransaction(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransaction.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction handles POST requests to create a new transaction.
//
// Endpoint: POST /api/transaction
// Request Body: CreateTransactionRequest (date, symbol, type, quantity, price, fees)
// Response: 201 Created with model.Transaction
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if an identical transaction already exists
// Error: 500 Internal Server Error if creation fails
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	transaction, err := h.transactionService.CreateTransaction(r.Context(), req)
	if err != nil {
		var vErr *validation.Error
		switch {
		case errors.As(err, &vErr):
			respondValidationError(w, err)
		case errors.Is(err, apperrors.ErrDuplicateEntry):
			response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateEntry.Error(), "an identical transaction already exists")
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCreateTransaction.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// ImportTransactions handles POST requests carrying a normalized CSV file,
// either as the "file" field of a multipart form or as a raw text/csv body.
//
// Endpoint: POST /api/transaction/import
// Request Body: CSV with header date,symbol,type,quantity,price,fees
// Response: 200 OK with model.ImportResult
// Error: 400 Bad Request if the header is wrong, a row is invalid or no file is sent
// Error: 500 Internal Server Error if the import fails
func (h *TransactionHandler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "no file provided", err.Error())
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.transactionService.ImportCSV(r.Context(), body)
	if err != nil {
		var vErr *validation.Error
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &vErr):
			respondValidationError(w, err)
		case errors.Is(err, apperrors.ErrInvalidCSVHeaders):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidCSVHeaders.Error(), err.Error())
		case errors.As(err, &maxErr):
			response.RespondError(w, http.StatusRequestEntityTooLarge, "file too large", err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToImportTransactions.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// DeleteTransaction handles DELETE requests to remove a transaction.
//
// Endpoint: DELETE /api/transaction/{uuid}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if transaction not found
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	err := h.transactionService.DeleteTransaction(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), err.Error())
			return
		}

		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToDeleteTransaction.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
