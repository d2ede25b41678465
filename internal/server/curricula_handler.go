package server

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/store"
	"github.com/atozfamily/homescholar/internal/validation"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type saveCurriculumRequest struct {
	ResearchQuery   research.Query         `json:"researchQuery"`
	ResearchContext []search.Candidate     `json:"researchContext"`
	Curriculum      *curriculum.Curriculum `json:"curriculum"`
}

// CurriculumResponse is the wire form of a saved curriculum.
type CurriculumResponse struct {
	ID            string          `json:"id"`
	ResearchQuery research.Query  `json:"researchQuery"`
	Title         string          `json:"title"`
	Curriculum    json.RawMessage `json:"curriculum"`
	Resources     json.RawMessage `json:"resources"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toResponse(rec store.CurriculumRecord) CurriculumResponse {
	return CurriculumResponse{
		ID: rec.ID,
		ResearchQuery: research.Query{
			Subject: rec.Subject,
			Grade:   rec.Grade,
			Topics:  rec.Topics,
		},
		Title:      rec.Title,
		Curriculum: rec.Document,
		Resources:  rec.Resources,
		CreatedAt:  rec.CreatedAt,
	}
}

func (s *Server) saveCurriculum(c *fiber.Ctx) error {
	if s.deps.Curricula == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, msgUnavailable)
	}

	var req saveCurriculumRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadBody)
	}
	if err := req.ResearchQuery.Validate(); err != nil {
		if ok, rerr := validationFailure(c, err); ok {
			return rerr
		}
		return err
	}
	if req.Curriculum == nil || strings.TrimSpace(req.Curriculum.Title) == "" {
		return invalidCurriculum(c, "Curriculum with a title is required")
	}

	// Saved documents meet the same schema as generated ones.
	doc, err := json.Marshal(req.Curriculum)
	if err != nil {
		return err
	}
	if _, err := curriculum.Parse(string(doc)); err != nil {
		s.logger.Debug("rejected curriculum document", zap.Error(err))
		return invalidCurriculum(c, "Curriculum needs a title, description, objectives and lessons")
	}
	resources, err := json.Marshal(search.Sanitize(req.ResearchContext))
	if err != nil {
		return err
	}

	q := req.ResearchQuery.Normalized()
	rec, err := s.deps.Curricula.Save(c.UserContext(), store.CurriculumInput{
		Subject:   q.Subject,
		Grade:     q.Grade,
		Topics:    q.Topics,
		Title:     strings.TrimSpace(req.Curriculum.Title),
		Resources: resources,
		Document:  doc,
	})
	if err != nil {
		return err
	}

	s.logger.Info("curriculum saved",
		zap.String("id", rec.ID),
		zap.String("title", rec.Title),
		zap.String("request_id", requestID(c)),
	)
	return c.Status(fiber.StatusCreated).JSON(toResponse(rec))
}

func (s *Server) listCurricula(c *fiber.Ctx) error {
	if s.deps.Curricula == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, msgUnavailable)
	}

	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	recs, err := s.deps.Curricula.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	out := make([]CurriculumResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	return c.JSON(out)
}

func (s *Server) showCurriculum(c *fiber.Ctx) error {
	if s.deps.Curricula == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, msgUnavailable)
	}

	rec, err := s.deps.Curricula.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, msgNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(toResponse(rec))
}

func invalidCurriculum(c *fiber.Ctx, msg string) error {
	_, err := validationFailure(c, &validation.Error{Fields: []validation.FieldError{
		{Field: "curriculum", Message: msg},
	}})
	return err
}
