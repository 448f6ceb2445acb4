package conversationrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/database/dbschema"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

// normalizedStatus trims the same characters as conversation.Normalize and
// matches idx_conversations_status_updated_at.
const normalizedStatus = `lower(btrim(status, E' \t\r\n'))`

type ConversationGormRepository struct {
	db *gorm.DB
}

var (
	_ triage.ConversationReader = (*ConversationGormRepository)(nil)
	_ triage.ScopeResolver      = (*ConversationGormRepository)(nil)
)

func NewConversationGormRepository(db *gorm.DB) *ConversationGormRepository {
	return &ConversationGormRepository{db: db}
}

func (repo *ConversationGormRepository) scoped(ctx context.Context, scope triage.Scope) *gorm.DB {
	sql := repo.db.WithContext(ctx).Model(&dbschema.Conversation{})
	if !scope.IsAll() {
		sql = sql.Where("id IN ?", scope.IDs())
	}
	return sql
}

// ListOpen implements triage.ConversationReader.
func (repo *ConversationGormRepository) ListOpen(ctx context.Context, scope triage.Scope, limit int) ([]*conversation.Conversation, error) {
	if scope.IsEmpty() {
		return nil, nil
	}

	var rows []*dbschema.Conversation
	err := repo.scoped(ctx, scope).
		Where(normalizedStatus+" NOT IN ?", conversation.TerminalStatuses()).
		Order("last_message_at DESC NULLS LAST").
		Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list open conversations")
	}

	result := make([]*conversation.Conversation, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.EtoD())
	}
	return result, nil
}

// CountClosed implements triage.ConversationReader.
func (repo *ConversationGormRepository) CountClosed(ctx context.Context, scope triage.Scope, since time.Time) (int, error) {
	if scope.IsEmpty() {
		return 0, nil
	}

	var count int64
	err := repo.scoped(ctx, scope).
		Where(normalizedStatus+" IN ?", conversation.TerminalStatuses()).
		Where("updated_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to count closed conversations")
	}
	return int(count), nil
}

// FindByID implements triage.ConversationReader.
func (repo *ConversationGormRepository) FindByID(ctx context.Context, id string) (*conversation.Conversation, error) {
	var row dbschema.Conversation
	err := repo.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, conversation.ErrNotFound
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversation by ID")
	}
	return row.EtoD(), nil
}

// ConversationIDsForInstance implements triage.ScopeResolver.
func (repo *ConversationGormRepository) ConversationIDsForInstance(ctx context.Context, instanceID string) ([]string, error) {
	ids := []string{}
	err := repo.db.WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("instance_id = ?", instanceID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to resolve instance conversations")
	}
	return ids, nil
}
