package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Outcome is the result of syncing one webhook payload.
// Any record failing aborts the batch, records already upserted are not rolled back
// and are upserted again when the webhook is redelivered.
type Outcome int

const (
	Done Outcome = iota
	NoPayload
	NoAttributes
	CaptureFailure
	CampaignFailure
)

// String returns the response body sent back to the webhook.
func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case NoPayload:
		return "no webhook payload"
	case NoAttributes:
		return "no attributes"
	case CaptureFailure:
		return "fail (capture)"
	case CampaignFailure:
		return "fail (sailthru)"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// WebhookEntry is one record named by a webhook. Other fields sent by the webhook are ignored.
type WebhookEntry struct {
	UUID string `json:"uuid"`
}

// ParseWebhookPayload decodes a webhook body, a JSON array of entries.
// An empty body or null decodes to no entries.
func ParseWebhookPayload(body []byte) ([]WebhookEntry, error) {
	var result []WebhookEntry
	if len(body) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("invalid webhook payload %w", err)
	}
	return result, nil
}

// Upserter creates or updates Sailthru profiles.
type Upserter interface {
	Upsert(ctx context.Context, req UpsertRequest) (string, error)
}

// Syncer syncs the records named by webhooks from Capture to Sailthru.
// Records are processed one at a time, in payload order.
type Syncer struct {
	Config   Config
	Capture  CaptureBackend
	Campaign Upserter
	Identity IdentityStrategy
	Logger   *zap.Logger
}

// NewSyncer returns a Syncer using the Sailthru api for lookups and upserts.
func NewSyncer(config Config, capture CaptureBackend, api CampaignAPI, logger *zap.Logger) (*Syncer, error) {
	campaign := CampaignClient{API: api}
	identity, err := NewIdentityStrategy(config.IdentityMode, campaign)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		Config:   config,
		Capture:  capture,
		Campaign: campaign,
		Identity: identity,
		Logger:   logger,
	}, nil
}

// NewSyncerFromConfig returns a Syncer calling the Capture and Sailthru APIs configured in config.
func NewSyncerFromConfig(config Config, logger *zap.Logger) (*Syncer, error) {
	capture := CaptureClient{Settings: config.Capture, RecordRequestsDir: config.RecordRequestsDir}
	api := SailthruClient{Settings: config.Campaign, RecordRequestsDir: config.RecordRequestsDir}
	return NewSyncer(config, capture, api, logger)
}

// Sync syncs every record in the payload, stopping at the first failure.
func (s *Syncer) Sync(ctx context.Context, payload []WebhookEntry) Outcome {
	if len(payload) == 0 {
		s.Logger.Warn("aborting: no webhook payload data in request")
		return NoPayload
	}
	s.Logger.Debug("webhook payload", zap.Any("payload", payload))

	specs, err := ParseAttributes(s.Config.Attributes, s.Config.SnakeCaseVars)
	if err != nil {
		s.Logger.Warn("aborting: no attributes specified in config", zap.Error(err))
		return NoAttributes
	}
	s.Logger.Debug("attributes", zap.Strings("attributes", CapturePaths(specs)))
	lists := ParseLists(s.Config.Lists)

	for _, entry := range payload {
		if outcome := s.syncRecord(ctx, entry.UUID, specs, lists); outcome != Done {
			return outcome
		}
	}
	return Done
}

func (s *Syncer) syncRecord(ctx context.Context, id string, specs []AttributeSpec, lists map[string]int) Outcome {
	l := s.Logger.With(zap.String("uuid", id))
	if id == "" {
		l.Error("capture: webhook entry has no uuid")
		return CaptureFailure
	}

	l.Info("retrieving record from capture")
	record, err := s.Capture.GetRecord(ctx, id, specs)
	if err != nil {
		l.Error("capture", zap.Error(err))
		return CaptureFailure
	}
	flattened, err := record.AsFlatDict(specs)
	if err != nil {
		l.Error("capture", zap.Error(err))
		return CaptureFailure
	}
	email, _ := flattened[EmailAttribute].(string)
	identity := Identity{UUID: id, Email: email}

	var vars UpsertRequest
	MapAttributes(specs, flattened, &vars)

	l.Info("reconciling record with sailthru", zap.String("mode", string(s.Identity.Mode())))
	req, err := s.Identity.Reconcile(ctx, identity, vars.Vars, lists)
	if err != nil {
		l.Error("sailthru", zap.Error(err))
		logBackendError(l, err)
		return CampaignFailure
	}

	l.Info("sending record to sailthru", zap.String("key", string(req.Key)))
	body, err := s.Campaign.Upsert(ctx, req)
	if err != nil {
		l.Error("sailthru error", zap.Error(err))
		logBackendError(l, err)
		return CampaignFailure
	}
	l.Debug("sailthru profile", zap.String("body", body))
	return Done
}

// logBackendError logs the Sailthru error code and message at debug level.
func logBackendError(l *zap.Logger, err error) {
	var apiError APIError
	if errors.As(err, &apiError) {
		l.Debug("sailthru error response", zap.Int("code", apiError.Code), zap.String("message", apiError.Message))
	}
}
