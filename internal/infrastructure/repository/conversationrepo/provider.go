package conversationrepo

import (
	"github.com/google/wire"

	"github.com/zapsales/supervision-api/internal/domain/triage"
)

// RepositoryProvider binds the repositories to the triage ports.
var RepositoryProvider = wire.NewSet(
	NewConversationGormRepository,
	NewHandoffGormRepository,
	NewMessagePgxRepository,
	NewTabCountPgxRepository,
	wire.Bind(new(triage.ConversationReader), new(*ConversationGormRepository)),
	wire.Bind(new(triage.ScopeResolver), new(*ConversationGormRepository)),
	wire.Bind(new(triage.HandoffReader), new(*HandoffGormRepository)),
	wire.Bind(new(triage.MessageReader), new(*MessagePgxRepository)),
	wire.Bind(new(triage.AggregateReader), new(*TabCountPgxRepository)),
)
