package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"freightdesk/internal/audit/models"
	"freightdesk/pkg/domain"
	"freightdesk/pkg/platform/tx"
)

// Outbox queues entries for publication. Rows are written in the same
// transaction as the entry; published_at marks them delivered.
type Outbox struct {
	db *sqlx.DB
}

func NewOutbox(db *sqlx.DB) *Outbox {
	return &Outbox{db: db}
}

// Enqueue inserts msg, joining the transaction in ctx.
func (o *Outbox) Enqueue(ctx context.Context, msg models.OutboxMessage) error {
	ex := tx.Executor(ctx, o.db)
	_, err := ex.ExecContext(ctx, ex.Rebind(`
		INSERT INTO audit_outbox (entry_id, message_key, payload, created_at)
		VALUES (?, ?, ?, ?)`),
		msg.EntryID.String(), msg.Key, string(msg.Payload), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

type outboxRow struct {
	Seq       int64  `db:"seq"`
	EntryID   string `db:"entry_id"`
	Key       string `db:"message_key"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

// FetchPending returns up to limit unpublished rows, oldest first.
func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	var rows []outboxRow
	err := o.db.SelectContext(ctx, &rows, o.db.Rebind(`
		SELECT seq, entry_id, message_key, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	out := make([]models.OutboxMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.OutboxMessage{
			Seq:       r.Seq,
			EntryID:   domain.EntryID(r.EntryID),
			Key:       r.Key,
			Payload:   []byte(r.Payload),
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// MarkPublished stamps the given rows as delivered.
func (o *Outbox) MarkPublished(ctx context.Context, seqs []int64, at int64) error {
	if len(seqs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE audit_outbox SET published_at = ? WHERE seq IN (?)`, at, seqs)
	if err != nil {
		return fmt.Errorf("build outbox update: %w", err)
	}
	if _, err := o.db.ExecContext(ctx, o.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// Pending counts unpublished rows.
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	var n int
	if err := o.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return n, nil
}
