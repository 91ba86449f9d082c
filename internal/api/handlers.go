package api

import (
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/ocr"
	"github.com/gmsas95/idscan/internal/store"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(healthResponse{
		Status:          "healthy",
		Version:         s.version,
		Engine:          s.scans.EngineName(),
		EngineAvailable: s.scans.EngineAvailable(),
		Timestamp:       time.Now().Unix(),
		Metrics:         s.metrics.Snapshot(),
	})
}

func (s *Server) handleToken(c *fiber.Ctx) error {
	var req tokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, "invalid request body")
		}
	}
	if !s.checkPassword(req.Password) {
		return apperrors.New(apperrors.ErrUnauthorized.Code, "invalid credentials")
	}

	expires := time.Now().Add(s.config.TokenTTL())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"iat": time.Now().Unix(),
		"exp": expires.Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to generate token")
	}

	return c.JSON(tokenResponse{Token: tokenString, ExpiresAt: expires.Unix()})
}

func kindParam(c *fiber.Ctx) (extract.Kind, error) {
	kind, ok := extract.ParseKind(strings.ToLower(c.Params("kind")))
	if !ok {
		return "", apperrors.New(apperrors.ErrBadRequest.Code, "unknown document kind: "+c.Params("kind"))
	}
	return kind, nil
}

func (s *Server) handleScan(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrImageUnreadable.Code, "failed to open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrImageUnreadable.Code, "failed to read upload")
	}

	out, err := s.scans.ScanBytes(c.UserContext(), kind, fh.Filename, data)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}

	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, "invalid request body")
	}
	if len(req.Lines) == 0 && len(req.Texts) == 0 {
		return apperrors.New(apperrors.ErrBadRequest.Code, "lines or texts required")
	}
	lines := req.ocrLines()
	if err := s.validator.ValidateLines(ocr.Texts(lines)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, "invalid lines")
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	out, err := s.scans.ExtractLines(c.UserContext(), kind, source, lines)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *Server) handleParseMRZ(c *fiber.Ctx) error {
	var req mrzRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, "invalid request body")
	}
	if err := s.validator.Validate(req.Text); err != nil {
		return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, "invalid MRZ text")
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	out, err := s.scans.ParseMRZ(c.UserContext(), source, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *Server) requireStore() error {
	if s.store == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "scan history is disabled")
	}
	return nil
}

func (s *Server) handleListScans(c *fiber.Ctx) error {
	if err := s.requireStore(); err != nil {
		return err
	}

	opts := store.ListOptions{
		Kind:    c.Query("kind"),
		Status:  c.Query("status"),
		BatchID: c.Query("batch"),
		Limit:   c.QueryInt("limit", 50),
		Offset:  c.QueryInt("offset", 0),
	}
	if opts.Kind != "" {
		kind, ok := extract.ParseKind(strings.ToLower(opts.Kind))
		if !ok {
			return apperrors.New(apperrors.ErrBadRequest.Code, "unknown document kind: "+opts.Kind)
		}
		opts.Kind = string(kind)
	}
	if opts.Limit > 500 {
		opts.Limit = 500
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	scans, err := s.store.ListScans(opts)
	if err != nil {
		return err
	}
	return c.JSON(scanListResponse{Scans: scans, Limit: opts.Limit, Offset: opts.Offset})
}

func (s *Server) handleGetScan(c *fiber.Ctx) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	scan, err := s.store.GetScan(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(scan)
}

func (s *Server) handleDeleteScan(c *fiber.Ctx) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.DeleteScan(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := statsResponse{Metrics: s.metrics.Snapshot()}
	if s.store != nil {
		kinds, err := s.store.Stats()
		if err != nil {
			return err
		}
		resp.Kinds = kinds
	}
	return c.JSON(resp)
}

func (s *Server) handleListBatches(c *fiber.Ctx) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	runs, err := s.store.ListBatchRuns(c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"batches": runs})
}
