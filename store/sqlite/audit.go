package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// AUDIT LOG
// =============================================================================

func (r *repo) AppendAudit(ctx context.Context, a generic.AuditEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, entity_type, entity_id, meta_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, int64(a.ActorID), string(a.Action), a.EntityType, a.EntityID, jsonText(a.Payload), fmtTime(a.Timestamp))
	return errors.Wrap(err, "append audit entry")
}

// ListAudit returns audit entries matching f, newest first.
func (r *repo) ListAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, int64(*f.ActorID))
	}
	if f.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if len(f.Actions) > 0 {
		in, a := inClause(f.Actions)
		where = append(where, "action IN "+in)
		args = append(args, a...)
	}
	query := "SELECT id, actor_id, action, entity_type, entity_id, meta_json, created_at FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list audit log")
	}
	defer rows.Close()

	out := []generic.AuditEntry{}
	for rows.Next() {
		var (
			a            generic.AuditEntry
			actor        int64
			action, meta string
			at           string
		)
		if err := rows.Scan(&a.ID, &actor, &action, &a.EntityType, &a.EntityID, &meta, &at); err != nil {
			return nil, errors.Wrap(err, "scan audit entry")
		}
		a.ActorID = generic.EmployeeID(actor)
		a.Action = generic.AuditAction(action)
		a.Payload = metaOf(meta)
		a.Timestamp = parseTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}
