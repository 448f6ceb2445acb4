package conversationrepo

import (
	"context"

	"github.com/zapsales/supervision-api/internal/domain/conversation"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/database/dbschema"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

const lastDirectionsQuery = `
	SELECT DISTINCT ON (conversation_id) conversation_id, direction
	FROM messages
	WHERE conversation_id = ANY($1)
	ORDER BY conversation_id, created_at DESC, id DESC
`

type MessagePgxRepository struct {
	db Querier
}

var _ triage.MessageReader = (*MessagePgxRepository)(nil)

func NewMessagePgxRepository(db Querier) *MessagePgxRepository {
	return &MessagePgxRepository{db: db}
}

// LastDirections implements triage.MessageReader.
func (repo *MessagePgxRepository) LastDirections(ctx context.Context, conversationIDs []string) (map[string]conversation.Direction, error) {
	directions := make(map[string]conversation.Direction, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return directions, nil
	}

	rows, err := repo.db.Query(ctx, lastDirectionsQuery, conversationIDs)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to query last message directions")
	}
	defer rows.Close()

	for rows.Next() {
		var msg dbschema.Message
		if err := rows.Scan(&msg.ConversationID, &msg.Direction); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to scan last message direction")
		}
		directions[msg.ConversationID] = conversation.ParseDirection(msg.Direction)
	}
	if err := rows.Err(); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to iterate last message directions")
	}

	return directions, nil
}
