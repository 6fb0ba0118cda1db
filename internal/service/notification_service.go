package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"meal-subscription-be/internal/entity"
	"meal-subscription-be/internal/model"
	"meal-subscription-be/internal/pkg/clock"
	"meal-subscription-be/internal/pkg/logger"
	"meal-subscription-be/internal/repository"
	"meal-subscription-be/pkg/events"
	pktNats "meal-subscription-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TargetSelf      = "SELF"
	TargetBroadcast = "BROADCAST"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
	Broadcast(notification model.Notification)
}

// EventSubscriber is the part of the NATS subscriber the service needs.
type EventSubscriber interface {
	Subscribe(subject string, durableName string, handler pktNats.EventHandler) error
}

type NotificationService struct {
	repo       repository.NotificationRepository
	subscriber EventSubscriber
	delivery   NotificationDelivery
	clock      clock.Clock
	logger     logger.ILogger
}

func NewNotificationService(repo repository.NotificationRepository, sub EventSubscriber, delivery NotificationDelivery, clk clock.Clock, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		clock:      clk,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() error {
	if s.subscriber == nil {
		return fmt.Errorf("notification subscriber not configured")
	}
	// Subscribe to all events with a durable consumer
	if err := s.subscriber.Subscribe(pktNats.SubjectPrefix+">", "notif-service-worker", s.HandleEvent); err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
	return nil
}

// HandleEvent turns one bus event into notifications. Unknown or inactive
// codes are dropped; a returned error makes NATS redeliver.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	// Strip "events." prefix from type if present (NATS subject includes stream name)
	typeCode := strings.TrimPrefix(event.EventType(), pktNats.SubjectPrefix)

	config, err := s.repo.GetNotificationTypeByCode(ctx, typeCode)
	if err != nil {
		return err
	}
	if config == nil {
		s.logger.Warn("NotificationService", fmt.Sprintf("Config not found for code: '%s'", typeCode), nil)
		return nil
	}
	if !config.IsActive {
		s.logger.Info("NotificationService", fmt.Sprintf("Notification type '%s' is inactive", typeCode), nil)
		return nil
	}

	switch config.TargetType {
	case TargetBroadcast:
		// push only, never stored per user
		if s.delivery != nil {
			s.delivery.Broadcast(s.buildNotification(uuid.Nil, config, event))
		}
		return nil

	case TargetSelf:
		userID, ok := recipientOf(event)
		if !ok {
			s.logger.Warn("NotificationService", fmt.Sprintf("TargetType SELF but no user_id found in payload for event %s", typeCode), nil)
			return nil
		}
		pref, err := s.preferenceOf(ctx, userID)
		if err != nil {
			return err
		}
		if pref.IsMuted(typeCode) {
			return nil
		}
		notif := s.buildNotification(userID, config, event)
		if err := s.repo.CreateNotification(ctx, &notif); err != nil {
			s.logger.Error("NotificationService", fmt.Sprintf("Error saving notification for user %s", userID), map[string]interface{}{"error": err.Error()})
			return err
		}
		if s.delivery != nil && pref.PushEnabled {
			s.delivery.Send(userID, notif)
		}
		return nil

	default:
		s.logger.Warn("NotificationService", "Unsupported target type", map[string]interface{}{
			"code":        typeCode,
			"target_type": config.TargetType,
		})
		return nil
	}
}

func recipientOf(event events.Event) (uuid.UUID, bool) {
	raw, ok := event.Payload()["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (s *NotificationService) buildNotification(userID uuid.UUID, config *model.NotificationType, event events.Event) model.Notification {
	// Simple Template Engine
	msg := config.Template
	payload := event.Payload()

	for k, v := range payload {
		placeholder := fmt.Sprintf("{%s}", k)
		msg = strings.ReplaceAll(msg, placeholder, fmt.Sprintf("%v", v))
	}

	entityType := ""
	var entityID *uuid.UUID
	if et, ok := payload["entity_type"].(string); ok {
		entityType = et
	}
	if eidStr, ok := payload["entity_id"].(string); ok {
		if eid, err := uuid.Parse(eidStr); err == nil {
			entityID = &eid
		}
	}

	// Metadata - enrich with action_url for deep linking
	metaMap := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		metaMap[k] = v
	}
	if entityType != "" && entityID != nil {
		metaMap["action_url"] = fmt.Sprintf("/%ss/%s", entityType, entityID.String())
	}
	metaJSON, _ := json.Marshal(metaMap)

	return model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TypeCode:   config.Code,
		Priority:   config.Priority,
		Title:      config.DisplayName,
		Message:    msg,
		Metadata:   datatypes.JSON(metaJSON),
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  s.clock.Now(),
		IsRead:     false,
	}
}

// GetNotifications fetches notifications for a user.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

// GetUnreadCount fetches unread count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

// MarkAllAsRead marks all notifications as read for a user.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) preferenceOf(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	pref, err := s.repo.GetPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return model.DefaultNotificationPreference(userID), nil
	}
	return pref, nil
}

// GetPreference returns the user's stored preference or the default one.
func (s *NotificationService) GetPreference(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	return s.preferenceOf(ctx, userID)
}

// UpdatePreference replaces the user's muted codes and push switch. Codes
// must exist in the notification registry.
func (s *NotificationService) UpdatePreference(ctx context.Context, userID uuid.UUID, mutedTypes []string, pushEnabled bool) (*model.NotificationPreference, error) {
	muted := make(datatypes.JSONSlice[string], 0, len(mutedTypes))
	seen := make(map[string]bool, len(mutedTypes))
	for _, code := range mutedTypes {
		if seen[code] {
			continue
		}
		config, err := s.repo.GetNotificationTypeByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if config == nil {
			return nil, fmt.Errorf("%w: %s", entity.ErrUnknownNotificationType, code)
		}
		seen[code] = true
		muted = append(muted, code)
	}

	pref := &model.NotificationPreference{UserID: userID, MutedTypes: muted, PushEnabled: pushEnabled}
	if err := s.repo.SavePreference(ctx, pref); err != nil {
		return nil, err
	}
	return pref, nil
}
