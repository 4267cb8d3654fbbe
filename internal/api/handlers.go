package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"emoledger/internal/core"
	"emoledger/internal/log"
	"emoledger/internal/storage"
)

type handlers struct {
	svc    ExpenseService
	health func(context.Context) error
	count  func(context.Context) (int64, error)
	logger *log.Logger
}

// createExpenseRequest mirrors the JSON body; pointers tell a missing field
// from a zero value.
type createExpenseRequest struct {
	Amount  *float64 `json:"amount"`
	Emotion *string  `json:"emotion"`
	Reason  *string  `json:"reason"`
}

func (r createExpenseRequest) toNewExpense() (core.NewExpense, string) {
	if r.Amount == nil {
		return core.NewExpense{}, "amount is required"
	}
	if r.Emotion == nil {
		return core.NewExpense{}, "emotion is required"
	}
	return core.NewExpense{Amount: *r.Amount, Emotion: *r.Emotion, Reason: r.Reason}, ""
}

func (h *handlers) createExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeDetail(c, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}

	e, problem := req.toNewExpense()
	if problem != "" {
		writeDetail(c, http.StatusUnprocessableEntity, problem)
		return
	}
	if err := e.Validate(); err != nil {
		writeDetail(c, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	created, err := h.svc.CreateExpense(c.Request.Context(), e)
	if err != nil {
		if errors.Is(err, core.ErrEmptyEmotion) || errors.Is(err, core.ErrInvalidAmount) {
			writeDetail(c, http.StatusUnprocessableEntity, validationDetail(err))
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "Failed to create expense",
			log.FieldOperation, log.OpCreate,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		writeDetail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, created)
}

func validationDetail(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyEmotion):
		return "emotion must not be empty"
	case errors.Is(err, core.ErrInvalidAmount):
		return fmt.Sprintf("amount must be a non-negative number no greater than %.0f", core.MaxAmount)
	default:
		return err.Error()
	}
}

func (h *handlers) listExpenses(c *gin.Context) {
	expenses, err := h.svc.ListExpenses(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "Failed to list expenses",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		writeDetail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	c.JSON(http.StatusOK, expenses)
}

func (h *handlers) getExpense(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(c, http.StatusUnprocessableEntity, "id must be a positive integer")
		return
	}

	expense, err := h.svc.GetExpense(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(c, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "Failed to get expense",
			log.FieldExpenseID, id,
			log.FieldError, err)
		writeDetail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (h *handlers) emotionAnalytics(c *gin.Context) {
	analytics, err := h.svc.EmotionAnalytics(c.Request.Context())
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "Failed to compute emotion analytics",
			log.FieldError, err)
		writeDetail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	// Encode before writing the status so an unencodable total is a 500,
	// not a 200 with an empty body.
	body, err := json.Marshal(analytics)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "Failed to encode emotion analytics",
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
		writeDetail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *handlers) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.health != nil {
		if err := h.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}

	body := gin.H{"status": "ok"}
	if h.count != nil {
		n, err := h.count(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		body["expenses"] = n
	}
	c.JSON(http.StatusOK, body)
}
