package detect

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// pattern is one compiled detection rule. When validate is set, a
// raw match must also pass it before it is reported; this covers
// constraints Go's RE2 syntax cannot express (no lookahead).
type pattern struct {
	re          *regexp.Regexp
	confidence  float64
	description string
	validate    func(string) bool
}

// patternTable holds the detection rules per entity type. Patterns
// are case-insensitive across the board.
var patternTable = map[entity.Type][]pattern{
	entity.TypeEmail: {
		{
			re:          regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			confidence:  0.95,
			description: "Standard email address",
		},
	},
	entity.TypePhone: {
		{
			re:          regexp.MustCompile(`(?i)\b(?:\+?1[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}\b`),
			confidence:  0.85,
			description: "US phone number",
		},
		{
			re:          regexp.MustCompile(`(?i)\b(?:\+91[-.\s]?)?[6-9]\d{9}\b`),
			confidence:  0.90,
			description: "Indian phone number",
		},
		{
			re:          regexp.MustCompile(`(?i)\b(?:\+\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}\b`),
			confidence:  0.75,
			description: "International phone number",
		},
	},
	entity.TypeAadhaar: {
		{
			re:          regexp.MustCompile(`(?i)\b[2-9]\d{3}[-\s]?\d{4}[-\s]?\d{4}\b`),
			confidence:  0.90,
			description: "Indian Aadhaar number",
		},
	},
	entity.TypeSSN: {
		{
			re:          regexp.MustCompile(`(?i)\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`),
			confidence:  0.88,
			description: "US Social Security Number",
			validate:    validSSN,
		},
	},
	entity.TypeCreditCard: {
		{
			re:          regexp.MustCompile(`(?i)\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|3(?:0[0-5]|[68][0-9])[0-9]{11}|6(?:011|5[0-9]{2})[0-9]{12}|(?:2131|1800|35\d{3})\d{11})\b`),
			confidence:  0.92,
			description: "Credit card number (Visa, MC, Amex, Discover)",
		},
		{
			re:          regexp.MustCompile(`(?i)\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b`),
			confidence:  0.85,
			description: "Credit card with separators",
		},
	},
	entity.TypeIPAddress: {
		{
			re:          regexp.MustCompile(`(?i)\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\b`),
			confidence:  0.90,
			description: "IPv4 address",
		},
		{
			re:          regexp.MustCompile(`(?i)\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`),
			confidence:  0.92,
			description: "IPv6 address",
		},
	},
	entity.TypeDateOfBirth: {
		{
			re:          regexp.MustCompile(`(?i)\b(?:0[1-9]|[12]\d|3[01])[-/](?:0[1-9]|1[0-2])[-/](?:19|20)\d{2}\b`),
			confidence:  0.70,
			description: "Date DD/MM/YYYY or DD-MM-YYYY",
		},
		{
			re:          regexp.MustCompile(`(?i)\b(?:19|20)\d{2}[-/](?:0[1-9]|1[0-2])[-/](?:0[1-9]|[12]\d|3[01])\b`),
			confidence:  0.70,
			description: "Date YYYY/MM/DD or YYYY-MM-DD",
		},
	},
	entity.TypeURL: {
		{
			re:          regexp.MustCompile(`(?i)https?://(?:www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_\+.~#?&/=]*)`),
			confidence:  0.80,
			description: "URL/Web address",
		},
	},
	entity.TypePANCard: {
		{
			re:          regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`),
			confidence:  0.85,
			description: "Indian PAN card number",
		},
	},
	entity.TypePassport: {
		{
			re:          regexp.MustCompile(`\b[A-Z][1-9]\d{7}\b`),
			confidence:  0.70,
			description: "Indian passport number",
		},
	},
	entity.TypeZipCode: {
		{
			re:          regexp.MustCompile(`(?i)\b\d{5}(?:-\d{4})?\b`),
			confidence:  0.60,
			description: "US ZIP code",
		},
		{
			re:          regexp.MustCompile(`(?i)\b\d{6}\b`),
			confidence:  0.50,
			description: "Indian PIN code",
		},
	},
	entity.TypePersonName: {
		{
			re:          regexp.MustCompile(`(?i)(?:(?:my name is|i am|this is|i'm|call me|name:\s*|name\s*[-–]\s*)\s*)([A-Za-z][a-z]+(?:\s+[A-Za-z][a-z]+)*)`),
			confidence:  0.80,
			description: "Name from contextual phrase",
		},
		{
			re:          regexp.MustCompile(`(?i)(?:(?:hi|hello|hey|dear)\s+(?:this is|i am|i'm)\s+)([A-Za-z][a-z]+(?:\s+[A-Za-z][a-z]+)*)`),
			confidence:  0.80,
			description: "Name from greeting phrase",
		},
	},
	entity.TypeAddress: {
		{
			re:          regexp.MustCompile(`(?i)(?:(?:i live in|i live at|address is|address:\s*|located at|residing at|resident of|live in|stay at|stay in)\s+)(.+?)(?:\.|,\s*(?:phone|email|contact|my)|$)`),
			confidence:  0.78,
			description: "Address from contextual phrase",
		},
		{
			re:          regexp.MustCompile(`(?i)\b\d{1,5}[-/]\d{1,5}(?:[-/]\d{1,5})?\s+[A-Za-z].*?(?:road|street|st|avenue|ave|lane|ln|nagar|colony|sector|block|cross|main|layout|puram|pet|peta|abad)\b`),
			confidence:  0.72,
			description: "Street address with number and road type",
		},
	},
}

// validSSN rejects digit groups that can never be issued SSNs
// (area 000/666/9xx, group 00, serial 0000).
func validSSN(value string) bool {
	digits := make([]byte, 0, 9)
	for i := 0; i < len(value); i++ {
		if value[i] >= '0' && value[i] <= '9' {
			digits = append(digits, value[i])
		}
	}
	if len(digits) != 9 {
		return false
	}
	area := string(digits[0:3])
	group := string(digits[3:5])
	serial := string(digits[5:9])
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}
	return true
}

// RegexDetector finds structured identifiers with deterministic
// patterns. High precision, fixed per-pattern confidence.
type RegexDetector struct {
	patterns map[entity.Type][]pattern
}

// NewRegexDetector creates a regex detection engine with the
// built-in pattern table.
func NewRegexDetector() *RegexDetector {
	return &RegexDetector{patterns: patternTable}
}

// Name implements Detector
func (d *RegexDetector) Name() string {
	return "regex"
}

// SupportedTypes returns the entity types this engine can detect
func (d *RegexDetector) SupportedTypes() []string {
	types := make([]string, 0, len(d.patterns))
	for t := range d.patterns {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// Detect implements Detector
func (d *RegexDetector) Detect(ctx context.Context, text string, types []string) ([]entity.Entity, error) {
	var entities []entity.Entity

	for entityType, patterns := range d.patterns {
		if !typeEnabled(entityType, types) {
			continue
		}
		for _, p := range patterns {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
				start, end := idx[0], idx[1]
				// Prefer the first capture group when the pattern
				// isolates the value from surrounding context.
				if p.re.NumSubexp() >= 1 && len(idx) >= 4 && idx[2] >= 0 {
					start, end = idx[2], idx[3]
				}
				value := text[start:end]
				if strings.TrimSpace(value) == "" {
					continue
				}
				if p.validate != nil && !p.validate(value) {
					continue
				}

				entities = append(entities, entity.Entity{
					Type:       entityType,
					Value:      value,
					Span:       entity.TextSpan{Start: start, End: end},
					Confidence: p.confidence,
					Source:     entity.SourceRegex,
				})
			}
		}
	}

	return resolveOverlaps(entities), nil
}

// resolveOverlaps removes overlapping detections within this engine,
// keeping the higher-confidence one.
func resolveOverlaps(entities []entity.Entity) []entity.Entity {
	if len(entities) == 0 {
		return entities
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Span.Start != entities[j].Span.Start {
			return entities[i].Span.Start < entities[j].Span.Start
		}
		return entities[i].Confidence > entities[j].Confidence
	})

	var resolved []entity.Entity
	for _, e := range entities {
		replaced := false
		overlap := false
		for i, existing := range resolved {
			if e.Span.Overlaps(existing.Span) {
				overlap = true
				if e.Confidence > existing.Confidence {
					resolved[i] = e
					replaced = true
				}
				break
			}
		}
		if !overlap && !replaced {
			resolved = append(resolved, e)
		}
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Span.Start < resolved[j].Span.Start
	})
	return resolved
}
