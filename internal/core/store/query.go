package store

import (
	"errors"
	"strings"
)

// Query selects cache or rate limit rows by exact key or key prefix.
type Query struct {
	All    bool
	Key    string
	Prefix string
}

func (q Query) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Key) != "" {
		return nil
	}
	if strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, or --prefix")
}

// whereClause renders the selection against column. Extra conditions are
// ANDed onto the result.
func (q Query) whereClause(column string, extra ...string) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	conds := []string{}
	args := []any{}
	switch {
	case q.All:
	case strings.TrimSpace(q.Key) != "":
		conds = append(conds, column+" = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.Key)))
	default:
		conds = append(conds, column+" LIKE ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.Prefix))+"%")
	}
	conds = append(conds, extra...)

	if len(conds) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args, nil
}
