package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Hughclaw18/Enterprise-Rag/internal/auth"
	"github.com/Hughclaw18/Enterprise-Rag/internal/store"
)

type contextKey string

const userIDKey contextKey = "userID"

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.Username, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.store.CreateUser(req.Username, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			http.Error(w, "Username already exists. Please choose another.", http.StatusConflict)
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Username, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type CreateSessionRequest struct {
	SessionName *string `json:"session_name,omitempty"`
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	var req CreateSessionRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	session, err := h.store.CreateSession(userID, req.SessionName)
	if err != nil {
		log.Printf("Error creating session for user %d: %v", userID, err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)

	sessions, err := h.store.GetSessionsByUserID(userID)
	if err != nil {
		log.Printf("Error listing sessions for user %d: %v", userID, err)
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []store.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.store.DeleteSession(sessionID, userID); err != nil {
		if err.Error() == "chat session not found" {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting session %s for user %d: %v", sessionID, userID, err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetSessionMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.store.GetSessionByID(sessionID, userID)
	if err != nil {
		log.Printf("Error loading session %s for user %d: %v", sessionID, userID, err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	messages, err := h.store.GetMessagesBySessionID(sessionID)
	if err != nil {
		log.Printf("Error loading messages for session %s: %v", sessionID, err)
		http.Error(w, "Failed to load messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type PostMessageRequest struct {
	Message string `json:"message"`
}

// PostSessionMessageHandler stores the user turn, runs the query pipeline
// and stores the assistant turn. When the pipeline fails the user turn is
// kept and a textual failure message is stored as the reply, so the session
// transcript reflects what the user actually saw.
func (h *APIHandler) PostSessionMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	sessionID := chi.URLParam(r, "sessionID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}

	session, err := h.store.GetSessionByID(sessionID, userID)
	if err != nil {
		log.Printf("Error verifying session %s for user %d: %v", sessionID, userID, err)
		http.Error(w, "Failed to verify session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	userMsg := store.ChatMessage{SessionID: sessionID, Sender: store.SenderUser, Message: req.Message}
	if err := h.store.AddMessage(&userMsg); err != nil {
		log.Printf("Error storing user message in session %s: %v", sessionID, err)
		http.Error(w, "Failed to store message", http.StatusInternalServerError)
		return
	}

	reply := ""
	if answer, err := h.answerer.Answer(r.Context(), req.Message); err != nil {
		log.Printf("Error answering in session %s: %v", sessionID, err)
		reply = "I'm sorry, I encountered an error while processing your request."
	} else {
		reply = answer.Text
	}

	assistantMsg := store.ChatMessage{SessionID: sessionID, Sender: store.SenderAssistant, Message: reply}
	if err := h.store.AddMessage(&assistantMsg); err != nil {
		log.Printf("Error storing assistant message in session %s: %v", sessionID, err)
		http.Error(w, "Failed to store reply", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, assistantMsg)
}

func (h *APIHandler) ClearSessionMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(int64)
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.store.GetSessionByID(sessionID, userID)
	if err != nil {
		log.Printf("Error verifying session %s for user %d: %v", sessionID, userID, err)
		http.Error(w, "Failed to verify session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if err := h.store.ClearMessages(sessionID); err != nil {
		log.Printf("Error clearing messages for session %s: %v", sessionID, err)
		http.Error(w, "Failed to clear messages", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
