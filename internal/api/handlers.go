package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/wordflash/internal/errors"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	CardService  services.CardService
	StudyService services.StudyService
	StatsService services.StatsService
	DB           Pinger
	CORSOrigins  []string
}

type cardResponse struct {
	Card    *models.Card          `json:"card"`
	Session *services.SessionInfo `json:"session"`
}

type startSessionRequest struct {
	NewLimit *int `json:"new_limit"`
}

type answerRequest struct {
	CardID      string         `json:"card_id"`
	Quality     models.Quality `json:"quality"`
	TimeSeconds float64        `json:"time_seconds"`
}

// handleHealth checks database connectivity when a DB is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.PingContext(r.Context()); err != nil {
			logger.FromContext(r.Context()).Warn("health check failed - database: %v", err)
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := s.CardService.Decks(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if decks == nil {
		decks = []string{}
	}
	writeJSON(w, r, http.StatusOK, decks)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	filter := models.CardFilter{
		Deck: chi.URLParam(r, "deck"),
		Tag:  strings.TrimSpace(r.URL.Query().Get("tag")),
	}
	for _, name := range queryList(r, "state") {
		filter.States = append(filter.States, models.State(name))
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		handleError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		handleError(w, r, err)
		return
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		handleError(w, r, errors.NewValidationError("limit", "limit and offset cannot be negative"))
		return
	}

	cards, err := s.CardService.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, r, http.StatusOK, cards)
}

func (s *Server) handleImportCards(w http.ResponseWriter, r *http.Request) {
	var raws []models.RawCard
	if err := decodeJSON(w, r, &raws, false); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.CardService.Import(r.Context(), chi.URLParam(r, "deck"), raws)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.CardService.Delete(r.Context(), chi.URLParam(r, "deck"), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	newLimit, err := queryInt(r, "new_limit", -1)
	if err != nil {
		handleError(w, r, err)
		return
	}

	cards, err := s.CardService.Queue(r.Context(), chi.URLParam(r, "deck"), newLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, r, http.StatusOK, cards)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}

	st, err := s.StatsService.DeckStats(r.Context(), chi.URLParam(r, "deck"), days)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		handleError(w, r, err)
		return
	}
	newLimit := -1
	if req.NewLimit != nil {
		newLimit = *req.NewLimit
	}

	info, err := s.StudyService.Start(r.Context(), chi.URLParam(r, "deck"), newLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}

func (s *Server) handleNextCard(w http.ResponseWriter, r *http.Request) {
	card, info, err := s.StudyService.Next(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if card == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, cardResponse{Card: card, Session: info})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}
	if strings.TrimSpace(req.CardID) == "" {
		handleError(w, r, errors.NewValidationError("card_id", "cannot be empty"))
		return
	}

	res, err := s.StudyService.Answer(r.Context(), chi.URLParam(r, "id"), req.CardID, req.Quality, req.TimeSeconds)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	card, info, err := s.StudyService.Undo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cardResponse{Card: card, Session: info})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.StudyService.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
