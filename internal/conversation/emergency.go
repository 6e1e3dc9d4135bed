package conversation

import "strings"

// Severity levels returned by SeverityLevel.
const (
	LevelNone     = 1
	LevelLow      = 2
	LevelMedium   = 3
	LevelHigh     = 4
	LevelCritical = 5
)

type severityTier struct {
	level    int
	keywords []string
}

// severityTiers is evaluated top down; the first tier with a hit decides the level.
var severityTiers = []severityTier{
	{level: LevelCritical, keywords: []string{"flooding", "active leak", "water pouring", "ceiling collapsing", "urgent now", "asap", "immediately"}},
	{level: LevelHigh, keywords: []string{"emergency", "urgent", "leaking now", "water damage", "flooded", "critical", "rush"}},
	{level: LevelMedium, keywords: []string{"leak", "water", "dripping", "wet", "moisture", "damage", "broken", "cracked"}},
	{level: LevelLow, keywords: []string{"storm", "hail", "wind", "damage", "issue", "problem", "concern"}},
}

// Category is a roofing issue family used to pick canned advice.
type Category string

const (
	CategoryNone        Category = ""
	CategoryLeaks       Category = "leaks"
	CategoryStorm       Category = "storm"
	CategoryWear        Category = "wear"
	CategoryVentilation Category = "ventilation"
	CategoryGutters     Category = "gutters"
)

type categoryKeywords struct {
	category Category
	keywords []string
}

var issueCategories = []categoryKeywords{
	{category: CategoryLeaks, keywords: []string{"leak", "dripping", "water", "moisture", "wet", "stain", "damp"}},
	{category: CategoryStorm, keywords: []string{"storm", "hail", "wind", "hurricane", "tornado", "debris", "tree"}},
	{category: CategoryWear, keywords: []string{"shingle", "tile", "missing", "damaged", "loose", "worn", "aging"}},
	{category: CategoryVentilation, keywords: []string{"vent", "attic", "mold", "ice dam", "ventilation", "airflow"}},
	{category: CategoryGutters, keywords: []string{"gutter", "downspout", "drainage", "clogged", "overflow"}},
}

// Classification is the urgency reading of one message.
type Classification struct {
	IsEmergency bool     `json:"isEmergency"`
	Level       int      `json:"level"`
	Category    Category `json:"category,omitempty"`
}

// DetectEmergency reports whether text contains any keyword from any severity tier.
// Matching is case-insensitive substring matching, so "rush" also hits "brush".
func DetectEmergency(text string) bool {
	return SeverityLevel(text) > LevelNone
}

// SeverityLevel scores text from 1 (no emergency) to 5 (critical).
func SeverityLevel(text string) int {
	lower := strings.ToLower(text)
	for _, tier := range severityTiers {
		if containsAny(lower, tier.keywords...) {
			return tier.level
		}
	}
	return LevelNone
}

// DetectIssueCategory returns the first category whose keywords appear in text.
func DetectIssueCategory(text string) (Category, bool) {
	lower := strings.ToLower(text)
	for _, c := range issueCategories {
		if containsAny(lower, c.keywords...) {
			return c.category, true
		}
	}
	return CategoryNone, false
}

// Classify runs the severity and category detectors together.
func Classify(text string) Classification {
	level := SeverityLevel(text)
	category, _ := DetectIssueCategory(text)
	return Classification{
		IsEmergency: level > LevelNone,
		Level:       level,
		Category:    category,
	}
}

func containsAny(lower string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
