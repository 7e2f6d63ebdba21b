package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nikhil/splitledger/internal/models"
	"github.com/nikhil/splitledger/internal/service"
	"github.com/nikhil/splitledger/internal/splitter"
	"github.com/nikhil/splitledger/internal/storage"
)

const defaultFeedLimit = 20

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	social  *service.SocialService
	expense *service.ExpenseService
	ledger  *service.LedgerService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, social *service.SocialService, expense *service.ExpenseService, ledger *service.LedgerService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		social:  social,
		expense: expense,
		ledger:  ledger,
	}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *APIHandlers) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user := &models.User{Name: req.Name, Email: req.Email}
	if err := h.social.CreateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (h *APIHandlers) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/users/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	user, err := h.social.GetUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, "failed to fetch user", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type friendRequest struct {
	UserID   string `json:"user_id"`
	FriendID string `json:"friend_id"`
}

func (h *APIHandlers) handleFriends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req friendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.FriendID == "" {
		writeError(w, http.StatusBadRequest, "user_id and friend_id are required")
		return
	}

	friendship, err := h.social.SendFriendRequest(r.Context(), req.UserID, req.FriendID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, friendship)
}

type acceptFriendRequest struct {
	FriendshipID string `json:"friendship_id"`
	UserID       string `json:"user_id"`
	FriendID     string `json:"friend_id"`
}

func (h *APIHandlers) handleAcceptFriend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req acceptFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	friendship := &models.Friendship{ID: req.FriendshipID, UserID: req.UserID, FriendID: req.FriendID}
	if err := h.social.AcceptFriendRequest(r.Context(), friendship); err != nil {
		h.respondError(w, "failed to accept friendship", err, "friendshipId", req.FriendshipID)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *APIHandlers) handleFriendsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/friends/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	friends, err := h.social.GetFriends(r.Context(), userID)
	if err != nil {
		h.respondError(w, "failed to fetch friends", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

type createGroupRequest struct {
	Name      string   `json:"name"`
	CreatedBy string   `json:"created_by"`
	MemberIDs []string `json:"member_ids"`
}

func (h *APIHandlers) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	group, err := h.social.CreateGroup(r.Context(), req.Name, req.CreatedBy, req.MemberIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

type addMembersRequest struct {
	GroupID string   `json:"group_id"`
	UserIDs []string `json:"user_ids"`
}

func (h *APIHandlers) handleGroupMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req addMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.social.AddGroupMembers(r.Context(), req.GroupID, req.UserIDs); err != nil {
		h.respondError(w, "failed to add group members", err, "groupId", req.GroupID)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandlers) handleGroupsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/groups/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	groups, err := h.social.GetGroups(r.Context(), userID)
	if err != nil {
		h.respondError(w, "failed to fetch groups", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

type expenseRequest struct {
	Description    string             `json:"description"`
	Amount         float64            `json:"amount"`
	Currency       string             `json:"currency"`
	Category       string             `json:"category"`
	PayerID        string             `json:"payer_id"`
	ParticipantIDs []string           `json:"participant_ids"`
	GroupID        string             `json:"group_id"`
	Date           int64              `json:"date"`
	Method         string             `json:"method"`
	ExactAmounts   map[string]float64 `json:"exact_amounts"`
	Percentages    map[string]float64 `json:"percentages"`
	Shares         map[string]float64 `json:"shares"`
	EditedBy       string             `json:"edited_by"`
}

func (r expenseRequest) toSplitRequest() service.SplitRequest {
	method := splitter.Method(r.Method)
	if method == "" {
		method = splitter.MethodEqual
	}
	return service.SplitRequest{
		Description:    r.Description,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Category:       r.Category,
		PayerID:        r.PayerID,
		ParticipantIDs: r.ParticipantIDs,
		GroupID:        r.GroupID,
		Date:           r.Date,
		Method:         method,
		ExactAmounts:   r.ExactAmounts,
		Percentages:    r.Percentages,
		Shares:         r.Shares,
	}
}

func (h *APIHandlers) handleExpenses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	expense, err := h.expense.CreateExpense(r.Context(), req.toSplitRequest())
	if err != nil {
		h.respondError(w, "failed to create expense", err, "payerId", req.PayerID)
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (h *APIHandlers) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	expenseID := pathSuffix(r.URL.Path, "/expenses/")
	if expenseID == "" {
		writeError(w, http.StatusBadRequest, "expense ID is required")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req expenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		expense, err := h.expense.UpdateExpense(r.Context(), expenseID, req.toSplitRequest(), req.EditedBy)
		if err != nil {
			h.respondError(w, "failed to update expense", err, "expenseId", expenseID)
			return
		}
		respondJSON(w, http.StatusOK, expense)

	case http.MethodDelete:
		deletedBy := r.URL.Query().Get("by")
		if err := h.expense.DeleteExpense(r.Context(), expenseID, deletedBy); err != nil {
			h.respondError(w, "failed to delete expense", err, "expenseId", expenseID)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

func (h *APIHandlers) handleExpensesByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/expenses/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	expenses, err := h.expense.GetExpenses(r.Context(), userID)
	if err != nil {
		h.respondError(w, "failed to fetch expenses", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

type settlementRequest struct {
	FromUserID string  `json:"from_user_id"`
	ToUserID   string  `json:"to_user_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	GroupID    string  `json:"group_id"`
	Date       int64   `json:"date"`
	Note       string  `json:"note"`
}

func (h *APIHandlers) handleSettlements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req settlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settlement := &models.Settlement{
		FromUserID: req.FromUserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		GroupID:    req.GroupID,
		Date:       req.Date,
		Note:       req.Note,
	}
	if err := h.expense.CreateSettlement(r.Context(), settlement); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, settlement)
}

func (h *APIHandlers) handleSettlementsByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/settlements/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	settlements, err := h.expense.GetSettlements(r.Context(), userID)
	if err != nil {
		h.respondError(w, "failed to fetch settlements", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, settlements)
}

func (h *APIHandlers) handleSplitPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	shares, err := h.expense.ComputeSplit(req.toSplitRequest())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, shares)
}

func (h *APIHandlers) handleBalancesByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/balances/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	balances, err := h.ledger.AggregateBalances(r.Context(), userID)
	if err != nil {
		h.respondError(w, "failed to compute balances", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "balances": balances})
}

func (h *APIHandlers) handlePairwiseBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userA := r.URL.Query().Get("user")
	userB := r.URL.Query().Get("other")
	if userA == "" || userB == "" {
		writeError(w, http.StatusBadRequest, "user and other query params are required")
		return
	}

	balance, err := h.ledger.PairwiseBalance(r.Context(), userA, userB)
	if err != nil {
		h.respondError(w, "failed to compute pairwise balance", err, "userId", userA)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": userA, "other": userB, "balance": balance})
}

type simplifyRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *APIHandlers) handleSimplify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req simplifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "user_ids is required")
		return
	}

	result, err := h.ledger.SimplifyDebts(r.Context(), req.UserIDs)
	if err != nil {
		h.respondError(w, "failed to simplify debts", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handleSimplifyGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	groupID := pathSuffix(r.URL.Path, "/simplify/group/")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "group ID is required")
		return
	}

	result, err := h.ledger.SimplifyGroupDebts(r.Context(), groupID)
	if err != nil {
		h.respondError(w, "failed to simplify group debts", err, "groupId", groupID)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandlers) handleActivityByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/activity/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	feed, err := h.social.GetActivities(r.Context(), userID, feedLimit(r))
	if err != nil {
		h.respondError(w, "failed to fetch activity", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

func (h *APIHandlers) handleDashboardByUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := pathSuffix(r.URL.Path, "/dashboard/user/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user ID is required")
		return
	}

	feed, err := h.social.GetDashboardActivity(r.Context(), userID, feedLimit(r))
	if err != nil {
		h.respondError(w, "failed to fetch dashboard activity", err, "userId", userID)
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

// respondError maps service errors to HTTP status codes: validation failures
// are the caller's fault, missing records are 404, everything else is 500.
func (h *APIHandlers) respondError(w http.ResponseWriter, message string, err error, logArgs ...any) {
	var verr *splitter.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error(message, append([]any{"error", err}, logArgs...)...)
		writeError(w, http.StatusInternalServerError, message)
	}
}

func pathSuffix(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

func feedLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultFeedLimit
}
