package graph

import (
	"strings"

	"github.com/studynexus/nexus/internal/models"
)

var (
	formulaHints    = []string{"formula", "equation", "calculate"}
	exampleHints    = []string{"example", "case", "instance"}
	trendHints      = []string{"trend", "growth", "increase", "decrease"}
	definitionHints = []string{"definition", "means", "refers to"}
)

// Categorize assigns a category to a concept from keyword hints in its label
// and explanation. Arithmetic operators mark a formula.
func Categorize(label, explanation string) models.Category {
	text := strings.ToLower(label + " " + explanation)

	switch {
	case containsAny(text, formulaHints) || strings.ContainsAny(text, "=+-*/^"):
		return models.CategoryFormula
	case containsAny(text, exampleHints):
		return models.CategoryExample
	case containsAny(text, trendHints):
		return models.CategoryTrend
	case containsAny(text, definitionHints):
		return models.CategoryDefinition
	default:
		return models.CategoryConcept
	}
}

func containsAny(text string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}

	return false
}
