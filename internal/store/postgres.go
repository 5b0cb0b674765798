package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Postgres stores documents as JSONB rows keyed by (collection, id).
type Postgres struct {
	db  *sqlx.DB
	reg *registry
}

// OpenPostgres connects and runs migrations.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect store db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run store migrations: %w", err)
	}

	p := &Postgres{db: db}
	p.reg = newRegistry(p.evalQuery)
	return p, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            data JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (collection, id)
        );`,
		`CREATE INDEX IF NOT EXISTS documents_collection_created_idx
            ON documents (collection, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Msg("store migrations applied")
	return nil
}

func (p *Postgres) Add(ctx context.Context, collection string, data map[string]any) (Document, error) {
	doc := Document{ID: uuid.NewString()}
	body, err := json.Marshal(resolveTimestamps(data, time.Now().UTC()))
	if err != nil {
		return Document{}, fmt.Errorf("encode document: %w", err)
	}

	var raw []byte
	err = p.db.QueryRowxContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
         RETURNING data, created_at, updated_at`,
		collection, doc.ID, body).
		Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}

	p.reg.broadcast(collection)
	return doc, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]any) error {
	body, err := json.Marshal(resolveTimestamps(data, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
         ON CONFLICT (collection, id)
         DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()`,
		collection, id, body)
	if err != nil {
		return err
	}

	p.reg.broadcast(collection)
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := json.Marshal(resolveTimestamps(fields, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3, updated_at = NOW()
         WHERE collection = $1 AND id = $2`,
		collection, id, body)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	p.reg.broadcast(collection)
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := p.db.GetContext(ctx,
		&row,
		`SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return row.document()
}

func (p *Postgres) GetAll(ctx context.Context, q Query) ([]Document, error) {
	sqlText, args := buildQuery(q)
	rows, err := p.db.QueryxContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var row documentRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		doc, err := row.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *Postgres) Subscribe(q Query, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	return p.reg.subscribe(q, onSnapshot, onError)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) evalQuery(q Query) ([]Document, error) {
	return p.GetAll(context.Background(), q)
}

// buildQuery renders a Query to SQL. Field names are code-level constants,
// never caller input, so interpolating them is safe here.
func buildQuery(q Query) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		switch f.Op {
		case OpArrayContains:
			val, _ := json.Marshal(f.Value)
			args = append(args, string(val))
			fmt.Fprintf(&b, " AND data->'%s' @> $%d::jsonb", f.Field, len(args))
		default:
			args = append(args, fmt.Sprint(f.Value))
			fmt.Fprintf(&b, " AND data->>'%s' = $%d", f.Field, len(args))
		}
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY data->>'%s' %s, id ASC", q.OrderBy, dir)
	} else {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	}
	return b.String(), args
}

type documentRow struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r documentRow) document() (Document, error) {
	doc := Document{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if err := json.Unmarshal(r.Data, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", r.ID, err)
	}
	return doc, nil
}
