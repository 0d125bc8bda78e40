package server

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/KaramelBytes/aircheck-cli/internal/advisory"
	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/report"
)

// pollutantQuery identifies a site, pollutant and year.
type pollutantQuery struct {
	Site      string `query:"site" validate:"required"`
	Pollutant string `query:"pollutant" validate:"required,pollutant"`
	Year      int    `query:"year" validate:"required,year"`
}

// siteQuery identifies a site and year.
type siteQuery struct {
	Site string `query:"site" validate:"required"`
	Year int    `query:"year" validate:"required,year"`
}

// evaluateQuery is a pollutant and a concentration to classify.
type evaluateQuery struct {
	Pollutant string   `query:"pollutant" validate:"required,pollutant"`
	Value     *float64 `query:"value" validate:"required"`
}

func newValidator(years []int) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pollutant", func(fl validator.FieldLevel) bool {
		_, err := air.ParsePollutant(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("year", func(fl validator.FieldLevel) bool {
		return len(years) == 0 || slices.Contains(years, int(fl.Field().Int()))
	})
	return v
}

// bind parses query parameters into dst and validates them.
func (s *server) bind(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *server) bindPollutant(c *fiber.Ctx) (pollutantQuery, air.Pollutant, error) {
	var q pollutantQuery
	if err := s.bind(c, &q); err != nil {
		return q, 0, err
	}
	p, err := air.ParsePollutant(q.Pollutant)
	if err != nil {
		return q, 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q, p, nil
}

func queryError(err error, site string, p air.Pollutant, year int) error {
	code := statusFor(err)
	if msg, ok := report.Describe(err, site, p, year); ok {
		return fiber.NewError(code, msg)
	}
	return err
}

func (s *server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"service":   "aircheck",
		"corpus_id": s.opt.Corpus.ID(),
		"records":   s.opt.Corpus.Len(),
		"loaded_at": s.opt.Corpus.LoadedAt(),
	})
}

func (s *server) sites(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sites": s.opt.Engine.Sites()})
}

func (s *server) pollutants(c *fiber.Ctx) error {
	type entry struct {
		Symbol    string  `json:"symbol"`
		Threshold float64 `json:"threshold"`
	}
	var out []entry
	for _, p := range s.opt.Engine.Pollutants() {
		out = append(out, entry{Symbol: p.String(), Threshold: p.Threshold()})
	}
	return c.JSON(fiber.Map{"pollutants": out, "unit": air.Unit})
}

func (s *server) years(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"years": s.opt.Years, "available": s.opt.Engine.Years()})
}

func (s *server) average(c *fiber.Ctx) error {
	q, p, err := s.bindPollutant(c)
	if err != nil {
		return err
	}
	res, err := s.opt.Engine.Average(q.Site, p, q.Year)
	if err != nil {
		return queryError(err, q.Site, p, q.Year)
	}
	return c.JSON(fiber.Map{"result": res, "message": report.AverageMessage(res)})
}

func (s *server) forecast(c *fiber.Ctx) error {
	q, p, err := s.bindPollutant(c)
	if err != nil {
		return err
	}
	res, err := s.opt.Forecaster.Forecast(q.Site, p, q.Year)
	if err != nil {
		return queryError(err, q.Site, p, q.Year)
	}
	return c.JSON(fiber.Map{"result": res, "message": report.ForecastMessage(res)})
}

func (s *server) series(c *fiber.Ctx) error {
	q, p, err := s.bindPollutant(c)
	if err != nil {
		return err
	}
	pts, err := s.opt.Engine.Series(q.Site, p, q.Year)
	if err != nil {
		return queryError(err, q.Site, p, q.Year)
	}
	return c.JSON(fiber.Map{
		"site":      q.Site,
		"pollutant": p,
		"year":      q.Year,
		"threshold": p.Threshold(),
		"points":    pts,
	})
}

func (s *server) chart(c *fiber.Ctx) error {
	q, p, err := s.bindPollutant(c)
	if err != nil {
		return err
	}
	pts, err := s.opt.Engine.Series(q.Site, p, q.Year)
	if err != nil {
		return queryError(err, q.Site, p, q.Year)
	}
	var buf bytes.Buffer
	if err := report.WriteChartPNG(&buf, q.Site, p, q.Year, pts); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", report.ChartFileName(q.Site, p, q.Year)))
	return c.Send(buf.Bytes())
}

func (s *server) summary(c *fiber.Ctx) error {
	var q siteQuery
	if err := s.bind(c, &q); err != nil {
		return err
	}
	sum, err := s.opt.Engine.Summary(q.Site, q.Year)
	if err != nil {
		return queryError(err, q.Site, air.Pollutant(-1), q.Year)
	}
	return c.JSON(sum)
}

func (s *server) evaluate(c *fiber.Ctx) error {
	var q evaluateQuery
	if err := s.bind(c, &q); err != nil {
		return err
	}
	v, err := advisory.EvaluateSymbol(q.Pollutant, *q.Value)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(v)
}
