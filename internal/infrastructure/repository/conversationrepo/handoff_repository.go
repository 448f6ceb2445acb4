package conversationrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/database/dbschema"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

type HandoffGormRepository struct {
	db *gorm.DB
}

var _ triage.HandoffReader = (*HandoffGormRepository)(nil)

func NewHandoffGormRepository(db *gorm.DB) *HandoffGormRepository {
	return &HandoffGormRepository{db: db}
}

// PendingConversationIDs implements triage.HandoffReader.
func (repo *HandoffGormRepository) PendingConversationIDs(ctx context.Context, conversationIDs []string) (map[string]struct{}, error) {
	pending := make(map[string]struct{})
	if len(conversationIDs) == 0 {
		return pending, nil
	}

	var ids []string
	err := repo.db.WithContext(ctx).
		Model(&dbschema.Handoff{}).
		Distinct("conversation_id").
		Where("status = ?", string(conversation.HandoffPending)).
		Where("conversation_id IN ?", conversationIDs).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to resolve pending handoffs")
	}

	for _, id := range ids {
		pending[id] = struct{}{}
	}
	return pending, nil
}
