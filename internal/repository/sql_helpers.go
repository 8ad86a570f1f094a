package repository

import (
	"errors"
	"sort"

	"github.com/UthayakumarDevon/livechatapp/internal/domain/message"

	"github.com/jackc/pgx/v5/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// sortTallies gives every engine the same deterministic tally order.
func sortTallies(tallies []message.ReactionTally) {
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].MessageID != tallies[j].MessageID {
			return tallies[i].MessageID < tallies[j].MessageID
		}
		return tallies[i].Emoji < tallies[j].Emoji
	})
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
