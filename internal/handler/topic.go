package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/practice-tracker/internal/model"
)

// TopicLister returns the catalog, seeding it on first use.
type TopicLister interface {
	ListTopics(ctx context.Context) ([]model.Topic, error)
}

type TopicHandler struct {
	topics TopicLister
	logger *slog.Logger
}

func NewTopicHandler(topics TopicLister, logger *slog.Logger) *TopicHandler {
	return &TopicHandler{topics: topics, logger: logger}
}

// HandleList handles GET /topics.
func (h *TopicHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.ListTopics(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}
