package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body JSONB NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS ledger_documents_sender_idx
	ON ledger_documents (collection, (body->>'senderId'));
CREATE INDEX IF NOT EXISTS ledger_documents_user_idx
	ON ledger_documents (collection, (body->>'userId'));
CREATE INDEX IF NOT EXISTS ledger_documents_week_idx
	ON ledger_documents (collection, (body->>'weekKey'));
`

// PostgresStore keeps every document as a JSONB row and runs each
// transaction at SERIALIZABLE isolation, so Postgres' predicate locks give
// the same guarantees the memory store enforces by version checks.
// Serialization failures are mapped onto ErrConflict and retried.
type PostgresStore struct {
	db    *sqlx.DB
	retry RetryPolicy
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, retry: DefaultRetryPolicy()}
}

func (s *PostgresStore) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

// EnsureSchema creates the document table and its indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ledger: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) RunTx(ctx context.Context, fn TxFunc) error {
	return s.retry.run(ctx, func(ctx context.Context) error {
		sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return classify(err)
		}
		if err := fn(ctx, &pgTx{tx: sqlTx}); err != nil {
			_ = sqlTx.Rollback()
			return classify(err)
		}
		if err := sqlTx.Commit(); err != nil {
			return classify(err)
		}
		return nil
	})
}

// classify turns serialization failures and deadlocks into ErrConflict.
// Anything else, business errors included, is returned unchanged.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)
		}
	}
	return err
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Get(ctx context.Context, key Key, dst any) (bool, error) {
	var body []byte
	err := t.tx.GetContext(ctx, &body,
		`SELECT body FROM ledger_documents WHERE collection = $1 AND id = $2`,
		key.Collection, key.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return true, decode(key, body, dst)
}

func (t *pgTx) Set(ctx context.Context, key Key, doc any) error {
	body, err := encode(key, doc)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO ledger_documents (collection, id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE
		SET body = EXCLUDED.body,
			version = ledger_documents.version + 1,
			updated_at = NOW()
	`, key.Collection, key.ID, []byte(body))
	return classify(err)
}

func (t *pgTx) Create(ctx context.Context, key Key, doc any) error {
	body, err := encode(key, doc)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_documents (collection, id, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO NOTHING
	`, key.Collection, key.ID, []byte(body))
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (t *pgTx) Query(ctx context.Context, q Query) ([]Document, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID   string `db:"id"`
		Body []byte `db:"body"`
	}
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{
			Key:  Key{Collection: q.Collection, ID: r.ID},
			Body: json.RawMessage(r.Body),
		})
	}
	return docs, nil
}

func buildSelect(q Query) (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT id, body FROM ledger_documents WHERE collection = $1`)

	for _, f := range q.Filters {
		v, _ := normalize(f.Value)
		var op string
		switch f.Op {
		case Eq:
			op = "="
		case Gte:
			op = ">="
		case Lte:
			op = "<="
		}
		args = append(args, v)
		fmt.Fprintf(&sb, " AND %s %s $%d", fieldExpr(f.Field, v), op, len(args))
	}

	if q.OrderBy != nil {
		expr := "body->>'" + q.OrderBy.Field + "'"
		switch q.OrderBy.Kind {
		case SortNumber:
			expr = "(" + expr + ")::numeric"
		case SortTime:
			expr = "(" + expr + ")::timestamptz"
		}
		dir := "ASC"
		if q.OrderBy.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s NULLS LAST, id ASC", expr, dir)
	} else {
		sb.WriteString(" ORDER BY id ASC")
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args, nil
}

// fieldExpr casts the JSON field to the filter value's type. Field names
// are checked against fieldPattern before they get here.
func fieldExpr(field string, v any) string {
	expr := "body->>'" + field + "'"
	switch v.(type) {
	case float64:
		return "(" + expr + ")::numeric"
	case bool:
		return "(" + expr + ")::boolean"
	case time.Time:
		return "(" + expr + ")::timestamptz"
	}
	return expr
}
