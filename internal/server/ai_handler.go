package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/research"
)

// research streams the research run as NDJSON, one research.Event per
// line. The last line is a "resources" event on success or an "error"
// event when the run failed after streaming began.
func (s *Server) research(c *fiber.Ctx) error {
	var q research.Query
	if err := c.BodyParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadBody)
	}
	if err := q.Validate(); err != nil {
		if ok, rerr := validationFailure(c, err); ok {
			return rerr
		}
		return err
	}

	// Leading status events are held back so that a run failing before
	// any real progress still answers with a proper status code.
	p := startPipe(func(ctx context.Context, emit func(string) error) error {
		var held strings.Builder
		committed := false
		_, err := s.deps.Research.Run(ctx, q, func(ev research.Event) error {
			line, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if !committed && ev.Type == research.EventStatus {
				held.Write(line)
				held.WriteByte('\n')
				return nil
			}
			committed = true
			out := held.String() + string(line) + "\n"
			held.Reset()
			return emit(out)
		})
		return err
	})

	first, ok, err := p.first()
	if !ok {
		return s.pipelineFailure(c, "research", err)
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Content-Type-Options", "nosniff")
	c.Status(fiber.StatusOK)

	logger := s.logger.With(zap.String("request_id", requestID(c)))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		p.drain(w, first, func(w *bufio.Writer, err error) {
			if err == nil {
				return
			}
			code, msg := failureStatus(err)
			logger.Warn("research stream failed", zap.Int("code", code), zap.Error(err))
			line, _ := json.Marshal(research.Event{Type: research.EventError, Message: msg, Code: code})
			_, _ = w.Write(append(line, '\n'))
		})
	})
	return nil
}

// generateCurriculum streams raw model output. The concatenated body is the
// curriculum JSON document; clients parse it only after the stream ends. A
// failure after the first byte truncates the body, which clients detect as
// malformed output.
func (s *Server) generateCurriculum(c *fiber.Ctx) error {
	var req curriculum.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadBody)
	}
	if err := req.Validate(); err != nil {
		if ok, rerr := validationFailure(c, err); ok {
			return rerr
		}
		return err
	}

	p := startPipe(func(ctx context.Context, emit func(string) error) error {
		return s.deps.Synthesizer.Stream(ctx, req, emit)
	})

	first, ok, err := p.first()
	if !ok && err != nil {
		return s.pipelineFailure(c, "generate", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Status(fiber.StatusOK)
	if !ok {
		return nil
	}

	logger := s.logger.With(zap.String("request_id", requestID(c)))
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		p.drain(w, first, func(_ *bufio.Writer, err error) {
			if err != nil {
				logger.Warn("curriculum stream failed after output began", zap.Error(err))
			}
		})
	})
	return nil
}

// pipelineFailure answers a run that failed before producing output.
func (s *Server) pipelineFailure(c *fiber.Ctx, op string, err error) error {
	if err == nil {
		err = errors.New("no output produced")
	}
	if ok, rerr := validationFailure(c, err); ok {
		return rerr
	}
	code, msg := failureStatus(err)
	s.logger.Warn(op+" failed",
		zap.Int("code", code),
		zap.String("request_id", requestID(c)),
		zap.Error(err),
	)
	return c.Status(code).JSON(errorResponse{Message: msg})
}
