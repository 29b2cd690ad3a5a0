// Package service holds the client and tag use cases behind the HTTP handlers.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/cache"
	"github.com/bcnelson/salon-crm/internal/metrics"
	"github.com/bcnelson/salon-crm/internal/notify"
	"github.com/bcnelson/salon-crm/internal/storage"
	"github.com/bcnelson/salon-crm/internal/validation"
)

var tracer = otel.Tracer("github.com/bcnelson/salon-crm/internal/service")

// Deps are the collaborators shared by the services. Only Store is required.
type Deps struct {
	Store    storage.Storage
	Cache    cache.OverviewCache
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// base carries the dependencies and helpers common to every service.
type base struct {
	store     storage.Storage
	cache     cache.OverviewCache
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	validator *validation.Validator

	now   func() time.Time
	newID func() string
}

func newBase(deps Deps) base {
	b := base{
		store:     deps.Store,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		validator: validation.New(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	if b.cache == nil {
		b.cache = cache.Noop{}
	}
	if b.notifier == nil {
		b.notifier = notify.Noop{}
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// invalidate drops the cached overview of orgID. Failures only cost a stale overview until the TTL.
func (b *base) invalidate(ctx context.Context, orgID string) {
	if err := b.cache.Invalidate(ctx, orgID); err != nil {
		b.logger.Warn("overview cache invalidation failed",
			zap.String("organization_id", orgID), zap.Error(err))
	}
}

// publish sends a client event. Delivery failures are logged and counted, never returned.
func (b *base) publish(ctx context.Context, event, orgID, clientID string) {
	err := b.notifier.Notify(ctx, notify.Event{
		Event:          event,
		OrganizationID: orgID,
		ClientID:       clientID,
		OccurredAt:     b.now(),
	})
	if err != nil {
		b.metrics.WebhookFailures.Inc()
		b.logger.Warn("webhook delivery failed",
			zap.String("event", event),
			zap.String("organization_id", orgID),
			zap.String("client_id", clientID),
			zap.Error(err))
	}
}

func startSpan(ctx context.Context, name, orgID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("crm.organization_id", orgID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
