package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"supportbot/internal/domain"
	"supportbot/internal/service"
)

const (
	maxBodyBytes   = 1 << 20
	msgInvalidJSON = "Request must be valid JSON"
)

type trainRequest struct {
	ModelType string `json:"model_type"`
}

type trainResponse struct {
	Status    string                                `json:"status"`
	Message   string                                `json:"message"`
	ModelType string                                `json:"model_type"`
	Results   map[domain.Kind]domain.TrainingResult `json:"results"`
	Timestamp time.Time                             `json:"timestamp"`
}

type chatRequest struct {
	Message   *string `json:"message"`
	ModelType string  `json:"model_type"`
	SessionID string  `json:"session_id"`
}

type chatResponse struct {
	Status       string      `json:"status"`
	SessionID    string      `json:"session_id"`
	ModelType    domain.Kind `json:"model_type"`
	ResponseTime float64     `json:"response_time"`
	Timestamp    time.Time   `json:"timestamp"`
	domain.Reply
}

type compareRequest struct {
	Message *string `json:"message"`
}

type modelDescription struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Loaded      bool     `json:"loaded"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now(),
		"models": map[string]bool{
			"basic_model_loaded":    s.svc.Engine(domain.KindBasic).IsReady(),
			"enhanced_model_loaded": s.svc.Engine(domain.KindEnhanced).IsReady(),
		},
		"version": Version,
	})
}

func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, msgInvalidJSON)
			return
		}
	}
	modelType, kinds := trainKinds(req.ModelType)

	results := make(map[domain.Kind]domain.TrainingResult, len(kinds))
	for _, kind := range kinds {
		res, err := s.svc.TrainFromDataset(r.Context(), kind)
		if err != nil {
			s.logger.Error().Err(err).Str("engine", string(kind)).Msg("training request failed")
			// Engines trained before the failure stay published; report them.
			s.writeJSON(w, trainStatus(err), trainResponse{
				Status:    "error",
				Message:   fmt.Sprintf("Training failed: %v", err),
				ModelType: modelType,
				Results:   results,
				Timestamp: s.now(),
			})
			return
		}
		results[kind] = res
	}
	s.writeJSON(w, http.StatusOK, trainResponse{
		Status:    "success",
		Message:   fmt.Sprintf("%s model trained successfully", capitalize(modelType)),
		ModelType: modelType,
		Results:   results,
		Timestamp: s.now(),
	})
}

// trainKinds maps a requested model type onto engines: "all" or "both"
// trains every engine, "enhanced" the enhanced one and anything else the
// basic one.
func trainKinds(modelType string) (string, []domain.Kind) {
	switch modelType {
	case "all", "both":
		return "all", service.Kinds()
	case string(domain.KindEnhanced):
		return modelType, []domain.Kind{domain.KindEnhanced}
	default:
		return string(domain.KindBasic), []domain.Kind{domain.KindBasic}
	}
}

func trainStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTrainingInProgress):
		return http.StatusConflict
	case domain.IsInputError(err), errors.Is(err, service.ErrNoDataset):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	msg, ok := s.message(w, req.Message)
	if !ok {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	kind := domain.ParseKind(req.ModelType)

	start := time.Now()
	reply := s.svc.Reply(kind, msg)
	s.writeJSON(w, http.StatusOK, chatResponse{
		Status:       "success",
		SessionID:    req.SessionID,
		ModelType:    kind,
		ResponseTime: time.Since(start).Seconds(),
		Timestamp:    s.now(),
		Reply:        reply,
	})
}

func (s *Server) modelStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"models":    s.svc.Status(),
		"timestamp": s.now(),
	})
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"models": map[domain.Kind]modelDescription{
			domain.KindBasic: {
				Name:        "Basic Chatbot",
				Description: "TF-IDF based similarity matching with cosine similarity",
				Features:    []string{"Fast response", "Simple training", "Good for basic queries"},
				Loaded:      s.svc.Engine(domain.KindBasic).IsReady(),
			},
			domain.KindEnhanced: {
				Name:        "Enhanced Chatbot",
				Description: "Advanced NLP with intent classification and enhanced preprocessing",
				Features:    []string{"Intent recognition", "Advanced preprocessing", "Better context understanding"},
				Loaded:      s.svc.Engine(domain.KindEnhanced).IsReady(),
			},
		},
	})
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	msg, ok := s.message(w, req.Message)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   msg,
		"responses": s.svc.Compare(msg),
		"timestamp": s.now(),
	})
}

func (s *Server) datasetInfo(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Dataset()
	if errors.Is(err, service.ErrNoDataset) {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":            "success",
			"dataset_available": false,
			"message":           "Dataset not processed yet",
			"timestamp":         s.now(),
		})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("reading dataset failed")
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get dataset info: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"dataset_available": true,
		"info":              p.Info,
		"samples":           p.Samples(5),
		"timestamp":         s.now(),
	})
}

// message validates a required chat message and writes the error response
// when it is unusable.
func (s *Server) message(w http.ResponseWriter, raw *string) (string, bool) {
	if raw == nil {
		s.writeError(w, http.StatusBadRequest, "Missing required field: message")
		return "", false
	}
	msg := strings.TrimSpace(*raw)
	if msg == "" {
		s.writeError(w, http.StatusBadRequest, "Message cannot be empty")
		return "", false
	}
	if utf8.RuneCountInString(msg) > s.cfg.MaxMessageLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Message too long (max %d characters)", s.cfg.MaxMessageLength))
		return "", false
	}
	return msg, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("writing response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"status":    "error",
		"message":   message,
		"timestamp": s.now(),
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
