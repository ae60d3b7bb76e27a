package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/kado/internal/clock"
	notificationdomain "github.com/smallbiznis/kado/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	"github.com/smallbiznis/kado/internal/providers/chat"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Dispatcher struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     notificationdomain.Repository
	provider chat.Provider
	metrics  *obsmetrics.Metrics
}

type DispatcherParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     notificationdomain.Repository
	Provider chat.Provider
	Metrics  *obsmetrics.Metrics
}

func NewDispatcher(p DispatcherParam) notificationdomain.Dispatcher {
	return &Dispatcher{
		db:  p.DB,
		log: p.Log.Named("notification.dispatcher"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		provider: p.Provider,
		metrics:  p.Metrics,
	}
}

// Dispatch implements domain.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, intent notificationdomain.Intent) error {
	if strings.TrimSpace(intent.Text) == "" || intent.Kind == "" {
		return notificationdomain.ErrInvalidIntent
	}
	if intent.DedupeKey == "" {
		intent.DedupeKey = uuid.NewString()
	}

	deliverErr := d.deliver(ctx, intent)
	d.recordDelivery(ctx, intent, deliverErr)

	if deliverErr != nil {
		d.log.Warn("notification delivery failed",
			zap.String("kind", string(intent.Kind)),
			zap.Int64("event_id", int64(intent.EventID)),
			zap.String("dedupe_key", intent.DedupeKey),
			zap.Error(deliverErr),
		)
		return deliverErr
	}

	d.metrics.RecordNotificationDelivered(ctx, string(intent.Kind), string(intent.RecipientKind))
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, intent notificationdomain.Intent) error {
	if intent.RecipientKind == notificationdomain.RecipientMemberDM {
		return d.provider.PostDirectMessage(ctx, intent.RecipientExternalID, intent.Text)
	}
	return d.provider.PostMessage(ctx, intent.Channel, intent.Text)
}

// recordDelivery writes the audit row. Audit failures are logged, not
// surfaced: the message outcome is what the caller cares about.
func (d *Dispatcher) recordDelivery(ctx context.Context, intent notificationdomain.Intent, deliverErr error) {
	delivery := notificationdomain.Delivery{
		ID:        d.genID.Generate(),
		EventID:   intent.EventID,
		Kind:      intent.Kind,
		Recipient: recipientLabel(intent),
		DedupeKey: intent.DedupeKey,
		Status:    notificationdomain.DeliveryStatusSent,
		CreatedAt: d.clock.Now(),
	}
	if deliverErr != nil {
		msg := deliverErr.Error()
		delivery.Status = notificationdomain.DeliveryStatusFailed
		delivery.Error = &msg
	}

	if err := d.repo.InsertDelivery(ctx, d.db, &delivery); err != nil {
		d.log.Error("failed to record notification delivery", zap.Error(err))
	}
}

func recipientLabel(intent notificationdomain.Intent) string {
	if intent.RecipientKind == notificationdomain.RecipientMemberDM {
		return "member:" + strconv.FormatInt(intent.RecipientExternalID, 10)
	}
	if intent.Channel != "" {
		return "channel:" + intent.Channel
	}
	return string(notificationdomain.RecipientTeamChannel)
}
