// Package inbox turns signed webhook deliveries into stored messages and
// answers paginated queries over them.
package inbox

import (
	"context"

	"github.com/comigor/msghook/internal/apperr"
	"github.com/comigor/msghook/internal/logger"
	"github.com/comigor/msghook/internal/metrics"
	"github.com/comigor/msghook/internal/signature"
	"github.com/comigor/msghook/internal/store"
)

const defaultLimit = 10

// Config holds the settings the service needs from the application config.
type Config struct {
	Secret       string
	DefaultLimit int
	// MaxLimit clamps requested page sizes when positive.
	MaxLimit int
}

// Service orchestrates verification, parsing and storage.
type Service struct {
	store store.Store
	cfg   Config
}

// New creates a Service backed by st.
func New(st store.Store, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	return &Service{store: st, cfg: cfg}
}

// IngestResult reports what happened to an accepted delivery.
type IngestResult struct {
	MessageID string
	Duplicate bool
}

// Ingest authenticates rawBody against signatureHeader, then parses and
// stores the message it carries. A redelivery of a known message id is a
// success with Duplicate set.
func (s *Service) Ingest(ctx context.Context, rawBody []byte, signatureHeader string) (IngestResult, error) {
	if signatureHeader == "" {
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		logger.L.Warn("webhook rejected", "reason", "missing signature")
		return IngestResult{}, apperr.Auth("invalid signature")
	}
	if err := signature.Verify(s.cfg.Secret, rawBody, signatureHeader); err != nil {
		if apperr.Is(err, apperr.KindConfig) {
			metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeMisconfigured).Inc()
			logger.L.Error("webhook rejected", "reason", "secret not configured")
		} else {
			metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
			logger.L.Warn("webhook rejected", "reason", "signature mismatch")
		}
		return IngestResult{}, err
	}

	payload, err := ParsePayload(rawBody)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		logger.L.Info("webhook rejected", "reason", "invalid payload", "fields", apperr.Fields(err))
		return IngestResult{}, err
	}

	res, err := s.store.Insert(ctx, payload.Message())
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return IngestResult{}, err
		}
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeError).Inc()
		logger.L.Error("failed to store message", "message_id", payload.MessageID, "error", err)
		if !apperr.Is(err, apperr.KindStorage) {
			err = apperr.Storage(err, "insert message")
		}
		return IngestResult{}, err
	}

	out := IngestResult{MessageID: payload.MessageID, Duplicate: !res.Stored()}
	if out.Duplicate {
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
	} else {
		metrics.WebhooksTotal.WithLabelValues(metrics.OutcomeStored).Inc()
	}
	logger.L.Info("webhook accepted", "message_id", out.MessageID, "duplicate", out.Duplicate)
	return out, nil
}

// Query selects a page of messages. Nil Limit or Offset take the defaults;
// empty From or To apply no filter.
type Query struct {
	Limit  *int
	Offset *int
	From   string
	To     string
}

// ListResult is the response shape of a message query.
type ListResult struct {
	Total int             `json:"total"`
	Items []store.Message `json:"items"`
}

// List passes q through to the store.
func (s *Service) List(ctx context.Context, q Query) (ListResult, error) {
	metrics.MessageQueries.Inc()

	f := store.Filter{
		Limit:     s.cfg.DefaultLimit,
		Sender:    q.From,
		Recipient: q.To,
	}
	if q.Limit != nil {
		f.Limit = *q.Limit
	}
	if q.Offset != nil {
		f.Offset = *q.Offset
	}
	if s.cfg.MaxLimit > 0 && f.Limit > s.cfg.MaxLimit {
		f.Limit = s.cfg.MaxLimit
	}

	page, err := s.store.List(ctx, f)
	if err != nil {
		if !apperr.Is(err, apperr.KindValidation) && !apperr.Is(err, apperr.KindStorage) {
			err = apperr.Storage(err, "list messages")
		}
		if apperr.Is(err, apperr.KindStorage) {
			logger.L.Error("failed to list messages", "error", err)
		}
		return ListResult{}, err
	}
	items := page.Items
	if items == nil {
		items = []store.Message{}
	}
	return ListResult{Total: page.Total, Items: items}, nil
}
