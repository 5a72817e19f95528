package notification

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type outboxRow struct {
	ID          string         `gorm:"primaryKey;type:text"`
	Topic       string         `gorm:"type:text;not null"`
	AccountID   string         `gorm:"type:text;not null;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	DeliveredAt *time.Time
}

func (outboxRow) TableName() string { return "notification_outbox" }

// OutboxPublisher persists notifications for the notification worker to deliver.
type OutboxPublisher struct {
	db *gorm.DB
}

func NewOutboxPublisher(db *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{db: db}
}

func (p *OutboxPublisher) Publish(ctx context.Context, n Notification) error {
	return p.db.WithContext(ctx).Create(&outboxRow{
		ID:        n.ID,
		Topic:     n.Topic,
		AccountID: n.AccountID,
		Payload:   datatypes.JSON(n.Payload),
		CreatedAt: n.CreatedAt,
	}).Error
}

// Pending returns undelivered notifications of an account, oldest first.
func (p *OutboxPublisher) Pending(ctx context.Context, accountID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []outboxRow
	err := p.db.WithContext(ctx).
		Where("account_id = ? AND delivered_at IS NULL", accountID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, Notification{
			ID:        row.ID,
			Topic:     row.Topic,
			AccountID: row.AccountID,
			Payload:   []byte(row.Payload),
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (p *OutboxPublisher) MarkDelivered(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Model(&outboxRow{}).
		Where("id IN ?", ids).
		Update("delivered_at", at).Error
}

// AutoMigrate creates the outbox table on dialects without SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&outboxRow{})
}
