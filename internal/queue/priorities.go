package queue

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"hrmq/internal/config"
)

type rankEntry struct {
	id    string
	owner string
}

// rankJobs orders queued entries (given oldest first) under policy.
//
// fifo keeps submission order. fair_share interleaves owners: every owner's
// first job comes before any owner's second job, and ties keep submission
// order, so one user's large batch cannot starve everybody else.
func rankJobs(entries []rankEntry, policy string) []string {
	ordered := make([]rankEntry, len(entries))
	copy(ordered, entries)

	if policy != config.PriorityFIFO {
		round := make(map[string]int, len(entries))
		rounds := make([]int, len(entries))
		for i, entry := range entries {
			rounds[i] = round[entry.owner]
			round[entry.owner]++
		}
		idx := make([]int, len(entries))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return rounds[idx[a]] < rounds[idx[b]]
		})
		for i, j := range idx {
			ordered[i] = entries[j]
		}
	}

	ids := make([]string, len(ordered))
	for i, entry := range ordered {
		ids[i] = entry.id
	}
	return ids
}

// SetJobPriorities recomputes the rank of every queued entry. Ranks start at
// 1 and form a total order; entries in any other status get rank 0.
func (s *Store) SetJobPriorities(ctx context.Context) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, owner FROM job_queue WHERE status = ? ORDER BY created_at, rowid`, StatusQueued)
		if err != nil {
			return err
		}
		var entries []rankEntry
		for rows.Next() {
			var entry rankEntry
			if err := rows.Scan(&entry.id, &entry.owner); err != nil {
				rows.Close()
				return err
			}
			entries = append(entries, entry)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx, `UPDATE job_queue SET priority = 0 WHERE status != ?`, StatusQueued); err != nil {
			return err
		}
		for rank, id := range rankJobs(entries, s.policy) {
			if _, err := tx.ExecContext(ctx, `UPDATE job_queue SET priority = ? WHERE id = ?`, rank+1, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set job priorities: %w", err)
	}
	return nil
}
