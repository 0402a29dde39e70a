package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
)

// pageParams lee limit y offset del query string.
func pageParams(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	p.DefaultPage()
	return p
}

// timeParam acepta RFC 3339 o fecha (2006-01-02). Una fecha en "to" cubre el día completo.
func timeParam(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s debe ser fecha (AAAA-MM-DD) o RFC 3339", domain.ErrInvalidInput, name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// dateRange lee from/to.
func dateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if from, err = timeParam(c, "from", false); err != nil {
		return nil, nil, err
	}
	if to, err = timeParam(c, "to", true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// splitList "a, b,,c" → [a b c].
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
