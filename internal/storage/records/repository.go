package records

import "context"

// Repository persists downloaded source rows.
//
// Contract:
//   - SaveBatch: insert-or-ignore keyed by (region serial, source_id).
//     Duplicate keys are silently skipped, which makes repeated partition
//     attempts after a crash safe. The batch is chunked internally and each
//     chunk commits or rolls back atomically. Returns the number of rows
//     actually inserted.
//   - KnownSourceIDs: every source_id ever committed for the named region,
//     including rows from earlier runs. A region that was never saved yields
//     an empty set.
type Repository interface {
	SaveBatch(ctx context.Context, regionID int64, columns []string, rows [][]any) (int64, error)
	KnownSourceIDs(ctx context.Context, regionName string) (map[int64]struct{}, error)
}
