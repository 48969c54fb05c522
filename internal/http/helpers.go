package http

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"halya/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}

// formatRinggit formats an amount for display, e.g. "RM 1,234.50".
func formatRinggit(d decimal.Decimal) string {
	return core.FormatRinggit(d)
}

func templateFuncs(c *core.Classifier) template.FuncMap {
	return template.FuncMap{
		"ringgit": formatRinggit,
		"category": func(description string) string {
			return string(c.Classify(description))
		},
	}
}
