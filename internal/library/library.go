// Package library saves and lists generated curricula, either in the local
// database or through a homescholar server.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atozfamily/homescholar/internal/client"
	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/store"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = store.ErrNotFound

// Entry is a saved curriculum with the research it was built from.
type Entry struct {
	ID         string
	Query      research.Query
	Title      string
	Curriculum *curriculum.Curriculum
	Resources  []search.Candidate
	CreatedAt  time.Time
}

type Library interface {
	Save(ctx context.Context, q research.Query, resources []search.Candidate, c *curriculum.Curriculum) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
}

// Local stores curricula through a store.CurriculumRepo.
type Local struct {
	Repo store.CurriculumRepo
}

var _ Library = (*Local)(nil)

func (l *Local) Save(ctx context.Context, q research.Query, resources []search.Candidate, c *curriculum.Curriculum) (Entry, error) {
	if c == nil || strings.TrimSpace(c.Title) == "" {
		return Entry{}, errors.New("save curriculum: missing title")
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return Entry{}, fmt.Errorf("encode curriculum: %w", err)
	}
	if resources == nil {
		resources = []search.Candidate{}
	}
	res, err := json.Marshal(resources)
	if err != nil {
		return Entry{}, fmt.Errorf("encode resources: %w", err)
	}

	q = q.Normalized()
	rec, err := l.Repo.Save(ctx, store.CurriculumInput{
		Subject:   q.Subject,
		Grade:     q.Grade,
		Topics:    q.Topics,
		Title:     strings.TrimSpace(c.Title),
		Resources: res,
		Document:  doc,
	})
	if err != nil {
		return Entry{}, err
	}
	return fromRecord(rec)
}

func (l *Local) List(ctx context.Context, limit int) ([]Entry, error) {
	recs, err := l.Repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *Local) Get(ctx context.Context, id string) (Entry, error) {
	rec, err := l.Repo.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return fromRecord(rec)
}

func fromRecord(rec store.CurriculumRecord) (Entry, error) {
	e := Entry{
		ID:        rec.ID,
		Query:     research.Query{Subject: rec.Subject, Grade: rec.Grade, Topics: rec.Topics},
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt,
	}
	var c curriculum.Curriculum
	if err := json.Unmarshal(rec.Document, &c); err != nil {
		return Entry{}, fmt.Errorf("decode curriculum %s: %w", rec.ID, err)
	}
	e.Curriculum = &c
	if len(rec.Resources) > 0 {
		if err := json.Unmarshal(rec.Resources, &e.Resources); err != nil {
			return Entry{}, fmt.Errorf("decode resources %s: %w", rec.ID, err)
		}
	}
	return e, nil
}

// Remote stores curricula through the server's /api/curricula endpoints.
type Remote struct {
	Client *client.Client
}

var _ Library = (*Remote)(nil)

func (r *Remote) Save(ctx context.Context, q research.Query, resources []search.Candidate, c *curriculum.Curriculum) (Entry, error) {
	saved, err := r.Client.SaveCurriculum(ctx, q, resources, c)
	if err != nil {
		return Entry{}, err
	}
	return fromSaved(*saved), nil
}

func (r *Remote) List(ctx context.Context, limit int) ([]Entry, error) {
	saved, err := r.Client.ListCurricula(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(saved))
	for _, s := range saved {
		out = append(out, fromSaved(s))
	}
	return out, nil
}

func (r *Remote) Get(ctx context.Context, id string) (Entry, error) {
	saved, err := r.Client.GetCurriculum(ctx, id)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return fromSaved(*saved), nil
}

func fromSaved(s client.SavedCurriculum) Entry {
	return Entry{
		ID:         s.ID,
		Query:      s.ResearchQuery,
		Title:      s.Title,
		Curriculum: s.Curriculum,
		Resources:  s.Resources,
		CreatedAt:  s.CreatedAt,
	}
}
