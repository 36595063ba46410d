package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/core/id"
)

const table = "documents"

// Schema creates the documents table. Every store collection shares it.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	seq        BIGSERIAL,
	body       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_body_gin ON documents USING GIN (body jsonb_path_ops);
`

type row struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

// Store implements docstore.Store. Eq filters are pushed down as JSONB
// containment; Expr filters run in-process.
type Store struct {
	docstore.Notifier

	txm     *TxManager
	matcher *docstore.Matcher
}

var _ docstore.Store = (*Store)(nil)

// NewStore creates a store over the transaction manager's pool.
func NewStore(txm *TxManager) *Store {
	return &Store{txm: txm, matcher: docstore.MustMatcher()}
}

// Migrate creates the schema if missing.
func (s *Store) Migrate(ctx context.Context) error {
	return s.txm.WithQuerier(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, Schema); err != nil {
			return fmt.Errorf("migrate documents: %w", err)
		}
		return nil
	})
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// List implements docstore.Store.
func (s *Store) List(ctx context.Context, name string, filter docstore.Filter) ([]docstore.Document, error) {
	eq, err := filter.NormalizedEq()
	if err != nil {
		return nil, apperror.NewValidation("invalid filter").WithCause(err)
	}

	q := builder().
		Select("id", "body").
		From(table).
		Where(squirrel.Eq{"collection": name}).
		OrderBy("seq")
	if len(eq) > 0 {
		contains, err := json.Marshal(eq)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		q = q.Where(squirrel.Expr("body @> ?::jsonb", string(contains)))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []row
	err = s.txm.WithQuerier(ctx, func(db Querier) error {
		return pgxscan.Select(ctx, db, &rows, sql, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return s.matcher.Apply(docs, filter.Expr)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, name, docID string) (docstore.Document, error) {
	sql, args, err := builder().
		Select("id", "body").
		From(table).
		Where(squirrel.Eq{"collection": name, "id": docID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var r row
	err = s.txm.WithQuerier(ctx, func(db Querier) error {
		return pgxscan.Get(ctx, db, &r, sql, args...)
	})
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(name, docID)
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return decodeRow(r)
}

// Insert implements docstore.Store.
func (s *Store) Insert(ctx context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, apperror.NewValidation("invalid document").WithCause(err)
	}
	docID := id.New()
	delete(stored, docstore.FieldID)

	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	sql, args, err := builder().
		Insert(table).
		Columns("collection", "id", "body").
		Values(name, docID, string(body)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	err = s.txm.WithQuerier(ctx, func(db Querier) error {
		_, err := db.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", name, err)
	}

	stored[docstore.FieldID] = docID
	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeInsert, ID: docID})
	return stored, nil
}

// Update implements docstore.Store. Fields are merged with the JSONB || operator.
func (s *Store) Update(ctx context.Context, name, docID string, fields docstore.Document) (docstore.Document, error) {
	patch, err := docstore.Normalize(fields)
	if err != nil {
		return nil, apperror.NewValidation("invalid document").WithCause(err)
	}
	delete(patch, docstore.FieldID)

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	sql, args, err := builder().
		Update(table).
		Set("body", squirrel.Expr("body || ?::jsonb", string(body))).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"collection": name, "id": docID}).
		Suffix("RETURNING id, body").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var r row
	err = s.txm.WithQuerier(ctx, func(db Querier) error {
		return pgxscan.Get(ctx, db, &r, sql, args...)
	})
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(name, docID)
		}
		return nil, fmt.Errorf("update %s: %w", name, err)
	}

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeUpdate, ID: docID})
	return decodeRow(r)
}

// Remove implements docstore.Store.
func (s *Store) Remove(ctx context.Context, name, docID string) error {
	sql, args, err := builder().
		Delete(table).
		Where(squirrel.Eq{"collection": name, "id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	var affected int64
	err = s.txm.WithQuerier(ctx, func(db Querier) error {
		tag, err := db.Exec(ctx, sql, args...)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if affected == 0 {
		return apperror.NewNotFound(name, docID)
	}

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeRemove, ID: docID})
	return nil
}

func decodeRow(r row) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(r.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", r.ID, err)
	}
	if doc == nil {
		doc = docstore.Document{}
	}
	doc[docstore.FieldID] = r.ID
	return doc, nil
}
