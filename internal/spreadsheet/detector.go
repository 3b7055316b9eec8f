package spreadsheet

import (
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mlane/campaignlens/internal/domain"
)

const (
	// exactMatchConfidence is assigned whenever a header hits a known pattern.
	exactMatchConfidence = 95
	// fuzzyMatchFloor is the minimum similarity a fuzzy match must exceed to
	// be suggested at all; anything at or below it is left for the user.
	fuzzyMatchFloor = 70
)

// fieldPatterns encodes known header spellings per canonical field. Fields are
// tried in domain.TargetFields order, so earlier fields win ties.
var fieldPatterns = map[domain.TargetField][]*regexp.Regexp{
	domain.FieldEmail: {
		regexp.MustCompile(`^e-?mail$`),
		regexp.MustCompile(`^contact[_\s]?e-?mail$`),
		regexp.MustCompile(`^subscriber[_\s]?e-?mail$`),
		regexp.MustCompile(`^attendee[_\s]?e-?mail$`),
		regexp.MustCompile(`^registrant[_\s]?e-?mail$`),
	},
	domain.FieldCampaignName: {
		regexp.MustCompile(`^campaign[_\s]?name$`),
		regexp.MustCompile(`^campaign$`),
		regexp.MustCompile(`^source[_\s]?campaign$`),
		regexp.MustCompile(`^marketing[_\s]?campaign$`),
	},
	domain.FieldUTMSource: {
		regexp.MustCompile(`^utm[_\s]?source$`),
		regexp.MustCompile(`^source$`),
		regexp.MustCompile(`^traffic[_\s]?source$`),
	},
	domain.FieldUTMMedium: {
		regexp.MustCompile(`^utm[_\s]?medium$`),
		regexp.MustCompile(`^medium$`),
		regexp.MustCompile(`^marketing[_\s]?medium$`),
	},
	domain.FieldUTMCampaign: {
		regexp.MustCompile(`^utm[_\s]?campaign$`),
	},
	domain.FieldRegistrationDate: {
		regexp.MustCompile(`^registration[_\s]?date$`),
		regexp.MustCompile(`^reg[_\s]?date$`),
		regexp.MustCompile(`^signup[_\s]?date$`),
		regexp.MustCompile(`^created[_\s]?date$`),
		regexp.MustCompile(`^date[_\s]?registered$`),
	},
	domain.FieldEventName: {
		regexp.MustCompile(`^event[_\s]?name$`),
		regexp.MustCompile(`^event[_\s]?title$`),
		regexp.MustCompile(`^webinar[_\s]?name$`),
		regexp.MustCompile(`^conference[_\s]?name$`),
	},
	domain.FieldEventDate: {
		regexp.MustCompile(`^event[_\s]?date$`),
		regexp.MustCompile(`^webinar[_\s]?date$`),
		regexp.MustCompile(`^scheduled[_\s]?date$`),
	},
	domain.FieldCost: {
		regexp.MustCompile(`^cost$`),
		regexp.MustCompile(`^spend$`),
		regexp.MustCompile(`^amount$`),
		regexp.MustCompile(`^marketing[_\s]?spend$`),
		regexp.MustCompile(`^campaign[_\s]?cost$`),
	},
	domain.FieldImpressions: {
		regexp.MustCompile(`^impressions?$`),
		regexp.MustCompile(`^views?$`),
		regexp.MustCompile(`^ad[_\s]?impressions$`),
	},
	domain.FieldClicks: {
		regexp.MustCompile(`^clicks?$`),
		regexp.MustCompile(`^click[_\s]?count$`),
		regexp.MustCompile(`^ad[_\s]?clicks$`),
	},
	domain.FieldConversions: {
		regexp.MustCompile(`^conversions?$`),
		regexp.MustCompile(`^converts?$`),
		regexp.MustCompile(`^leads?$`),
	},
	domain.FieldRegistrations: {
		regexp.MustCompile(`^registrations?$`),
		regexp.MustCompile(`^registered$`),
		regexp.MustCompile(`^signups?$`),
		regexp.MustCompile(`^enrollments?$`),
	},
	domain.FieldAttendees: {
		regexp.MustCompile(`^attendees?$`),
		regexp.MustCompile(`^attended$`),
		regexp.MustCompile(`^attendance$`),
		regexp.MustCompile(`^participants?$`),
	},
	domain.FieldAttendeeName: {
		regexp.MustCompile(`^attendee[_\s]?name$`),
		regexp.MustCompile(`^full[_\s]?name$`),
		regexp.MustCompile(`^name$`),
		regexp.MustCompile(`^registrant[_\s]?name$`),
	},
	domain.FieldCompany: {
		regexp.MustCompile(`^company$`),
		regexp.MustCompile(`^organization$`),
		regexp.MustCompile(`^org$`),
		regexp.MustCompile(`^account[_\s]?name$`),
	},
}

// fuzzyKeywords drive the tier-2 fallback. Keywords include a few common typos
// on purpose.
var fuzzyKeywords = map[domain.TargetField][]string{
	domain.FieldEmail:            {"email", "mail", "contact"},
	domain.FieldCampaignName:     {"campaign", "campign"},
	domain.FieldUTMSource:        {"utmsource", "source"},
	domain.FieldUTMMedium:        {"utmmedium", "medium"},
	domain.FieldRegistrationDate: {"regdate", "signupdate", "registered"},
	domain.FieldEventName:        {"eventname", "event"},
	domain.FieldCost:             {"cost", "spend", "price"},
	domain.FieldImpressions:      {"impression", "view"},
	domain.FieldClicks:           {"click"},
	domain.FieldRegistrations:    {"registration", "signup", "enrollment"},
	domain.FieldAttendees:        {"attendee", "attended", "participant"},
	domain.FieldAttendeeName:     {"attendee", "name", "fullname"},
	domain.FieldCompany:          {"company", "org", "organization"},
}

var headerNormalizer = regexp.MustCompile(`[^a-z0-9_\s]`)

// Detector proposes column-to-field mappings for a header list. It is a pure
// function of the headers; row content never influences the result.
type Detector struct{}

// NewDetector creates a column detector.
func NewDetector() *Detector {
	return &Detector{}
}

// DetectMappings returns one suggestion per header that found a match. Headers
// with no pattern hit and no fuzzy score above the floor are omitted, leaving
// them implicitly skipped until a user assigns them.
func (d *Detector) DetectMappings(headers []string) []domain.ColumnMapping {
	mappings := make([]domain.ColumnMapping, 0, len(headers))

	for _, header := range headers {
		normalized := normalizeHeader(header)

		if field, ok := matchPatterns(normalized); ok {
			mappings = append(mappings, domain.ColumnMapping{
				SourceColumn: header,
				TargetField:  field,
				Confidence:   exactMatchConfidence,
			})
			continue
		}

		if field, confidence, ok := fuzzyMatch(normalized); ok && confidence > fuzzyMatchFloor {
			mappings = append(mappings, domain.ColumnMapping{
				SourceColumn: header,
				TargetField:  field,
				Confidence:   confidence,
			})
		}
	}

	return mappings
}

func normalizeHeader(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	return headerNormalizer.ReplaceAllString(normalized, "")
}

func matchPatterns(normalized string) (domain.TargetField, bool) {
	for _, field := range domain.TargetFields {
		for _, pattern := range fieldPatterns[field] {
			if pattern.MatchString(normalized) {
				return field, true
			}
		}
	}
	return "", false
}

// fuzzyMatch scores the header against every keyword that shares a substring
// relationship with it and keeps the best (field, keyword) pair. The substring
// pre-filter keeps the edit-distance computation off wildly unrelated terms.
// Headers that the pre-filter rejects outright get one more chance: each
// whitespace-separated token is scored against the keyword list directly, so
// typoed headers like "Regstrant Emal" still land near their field.
func fuzzyMatch(normalized string) (domain.TargetField, int, bool) {
	var bestField domain.TargetField
	bestScore := 0

	for _, field := range domain.TargetFields {
		for _, keyword := range fuzzyKeywords[field] {
			if !strings.Contains(normalized, keyword) && !strings.Contains(keyword, normalized) {
				continue
			}
			score := similarity(normalized, keyword)
			if score > bestScore {
				bestField = field
				bestScore = score
			}
		}
	}

	if bestScore == 0 {
		for _, token := range strings.Fields(normalized) {
			for _, field := range domain.TargetFields {
				for _, keyword := range fuzzyKeywords[field] {
					score := similarity(token, keyword)
					if score > bestScore {
						bestField = field
						bestScore = score
					}
				}
			}
		}
	}

	if bestScore == 0 {
		return "", 0, false
	}
	return bestField, bestScore, true
}

// similarity converts Levenshtein edit distance into a 0-100 score relative to
// the longer string.
func similarity(a, b string) int {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}

	distance := levenshtein.ComputeDistance(a, b)
	return int(math.Round((1 - float64(distance)/float64(longest)) * 100))
}
