package conversationrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

const tabCountsQuery = `
	SELECT needs_attention, ai_active, waiting_on_doctor, closed
	FROM supervision_tab_counts($1::text[], $2)
`

// SQLSTATE codes meaning the aggregate function is not provisioned.
const (
	sqlStateUndefinedFunction = "42883"
	sqlStateUndefinedTable    = "42P01"
	sqlStateInvalidSchemaName = "3F000"
)

type TabCountPgxRepository struct {
	db Querier
}

var _ triage.AggregateReader = (*TabCountPgxRepository)(nil)

func NewTabCountPgxRepository(db Querier) *TabCountPgxRepository {
	return &TabCountPgxRepository{db: db}
}

// TabCounts implements triage.AggregateReader.
func (repo *TabCountPgxRepository) TabCounts(ctx context.Context, scope triage.Scope, now time.Time) (triage.TabCounts, error) {
	var ids []string
	if !scope.IsAll() {
		ids = scope.IDs()
	}

	var needsAttention, aiActive, waitingOnDoctor, closed int64
	err := repo.db.QueryRow(ctx, tabCountsQuery, ids, now).
		Scan(&needsAttention, &aiActive, &waitingOnDoctor, &closed)
	if err != nil {
		if isUnavailable(err) {
			return triage.TabCounts{}, fmt.Errorf("%w: %v", triage.ErrAggregateUnavailable, err)
		}
		return triage.TabCounts{}, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to call tab count aggregate")
	}

	return triage.TabCounts{
		NeedsAttention:  int(needsAttention),
		AIActive:        int(aiActive),
		WaitingOnDoctor: int(waitingOnDoctor),
		Closed:          int(closed),
	}, nil
}

func isUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case sqlStateUndefinedFunction, sqlStateUndefinedTable, sqlStateInvalidSchemaName:
		return true
	}
	return false
}
