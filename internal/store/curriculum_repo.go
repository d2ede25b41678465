package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type curriculumRow struct {
	ID        string `db:"id"`
	Subject   string `db:"subject"`
	Grade     string `db:"grade"`
	Topics    string `db:"topics"`
	Title     string `db:"title"`
	Resources string `db:"resources"`
	Document  string `db:"document"`
	CreatedAt int64  `db:"created_at"`
}

func (r curriculumRow) record() CurriculumRecord {
	return CurriculumRecord{
		ID:        r.ID,
		Subject:   r.Subject,
		Grade:     r.Grade,
		Topics:    r.Topics,
		Title:     r.Title,
		Resources: json.RawMessage(r.Resources),
		Document:  json.RawMessage(r.Document),
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// curriculumRepo implements CurriculumRepo with sqlx.
type curriculumRepo struct {
	db *sqlx.DB
}

func (r *curriculumRepo) Save(ctx context.Context, in CurriculumInput) (CurriculumRecord, error) {
	if len(in.Document) == 0 {
		return CurriculumRecord{}, fmt.Errorf("save curriculum: empty document")
	}
	resources := in.Resources
	if len(resources) == 0 {
		resources = json.RawMessage("[]")
	}

	row := curriculumRow{
		ID:        uuid.NewString(),
		Subject:   in.Subject,
		Grade:     in.Grade,
		Topics:    in.Topics,
		Title:     in.Title,
		Resources: string(resources),
		Document:  string(in.Document),
		CreatedAt: time.Now().UnixMilli(),
	}

	query := r.db.Rebind(`INSERT INTO curricula
		(id, subject, grade, topics, title, resources, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.Subject, row.Grade, row.Topics, row.Title, row.Resources, row.Document, row.CreatedAt)
	if err != nil {
		return CurriculumRecord{}, fmt.Errorf("save curriculum: %w", err)
	}

	return row.record(), nil
}

func (r *curriculumRepo) Get(ctx context.Context, id string) (CurriculumRecord, error) {
	var row curriculumRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT * FROM curricula WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return CurriculumRecord{}, ErrNotFound
	}
	if err != nil {
		return CurriculumRecord{}, fmt.Errorf("get curriculum %s: %w", id, err)
	}
	return row.record(), nil
}

func (r *curriculumRepo) List(ctx context.Context, limit int) ([]CurriculumRecord, error) {
	query := `SELECT * FROM curricula ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []curriculumRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list curricula: %w", err)
	}

	out := make([]CurriculumRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}
