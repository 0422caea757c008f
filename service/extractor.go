package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/model"
)

const (
	sectionDescriptionLength = 350
	keywordWindow            = 300
	genericExcerptLength     = 500
	minSectionContentLength  = 20

	// GenericRationaleTitle is used when neither sections nor keywords yield anything
	GenericRationaleTitle = "Approval Rationale"
	executiveSummary      = "Executive Summary"
)

// sectionDefinition describes one credit memo section the extractor looks for.
// Sections with an empty Title are read but never turned into a rationale on their own.
type sectionDefinition struct {
	Header     string
	Title      string
	EndMarkers []string
}

var closingHeaders = []string{
	"Recommendation",
	"Conditions Precedent",
	"Covenants",
	"Approval Decision",
}

var sectionDefinitions = []sectionDefinition{
	{
		Header:     executiveSummary,
		EndMarkers: []string{"Cash Flow Predictability", "Asset Coverage", "Operational Track Record", "Risk Factors and Mitigants"},
	},
	{
		Header:     "Cash Flow Predictability",
		Title:      "Cash Flow Predictability",
		EndMarkers: []string{"Asset Coverage", "Operational Track Record", "Risk Factors and Mitigants"},
	},
	{
		Header:     "Asset Coverage",
		Title:      "Asset Coverage",
		EndMarkers: []string{"Operational Track Record", "Risk Factors and Mitigants", "Cash Flow Predictability"},
	},
	{
		Header:     "Operational Track Record",
		Title:      "Operational Track Record",
		EndMarkers: []string{"Risk Factors and Mitigants", "Cash Flow Predictability", "Asset Coverage"},
	},
	{
		Header:     "Risk Factors and Mitigants",
		Title:      "Risk Factors and Mitigants",
		EndMarkers: []string{"Cash Flow Predictability", "Asset Coverage", "Operational Track Record"},
	},
}

type keywordRule struct {
	Keyword string
	Title   string
}

var keywordRules = []keywordRule{
	{Keyword: "cash flow", Title: "Cash Flow Strength"},
	{Keyword: "collateral", Title: "Collateral Coverage"},
	{Keyword: "management", Title: "Management Capability"},
	{Keyword: "operational", Title: "Operational Stability"},
	{Keyword: "risk", Title: "Risk Mitigation"},
}

// headerPatterns holds, per header, a line-start pattern and an anywhere pattern
type headerPatterns struct {
	lineStart *regexp.Regexp
	anywhere  *regexp.Regexp
}

var headerCache = map[string]headerPatterns{}

func init() {
	for _, def := range sectionDefinitions {
		compileHeader(def.Header)
		for _, marker := range def.EndMarkers {
			compileHeader(marker)
		}
	}
	for _, marker := range closingHeaders {
		compileHeader(marker)
	}
}

func compileHeader(header string) {
	if _, ok := headerCache[header]; ok {
		return
	}
	words := strings.Fields(header)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `\s+`)
	headerCache[header] = headerPatterns{
		lineStart: regexp.MustCompile(`(?im)^[ \t]*(?:\d+[.)][ \t]*)?` + body + `\b`),
		anywhere:  regexp.MustCompile(`(?i)\b` + body + `\b`),
	}
}

// findHeader locates header at or after from. Matches at the start of a line are
// preferred; flattened text without line structure falls back to any occurrence.
func findHeader(text, header string, from int) (start, end int, ok bool) {
	p := headerCache[header]
	rest := text[from:]
	if loc := p.lineStart.FindStringIndex(rest); loc != nil {
		return from + loc[0], from + loc[1], true
	}
	if loc := p.anywhere.FindStringIndex(rest); loc != nil {
		return from + loc[0], from + loc[1], true
	}
	return 0, 0, false
}

// ExtractSections returns the normalized content of every known section found in text.
// A section runs from its header to the nearest following end marker. Sections with
// 20 characters or fewer are dropped.
func ExtractSections(text string) map[string]string {
	sections := make(map[string]string)
	for _, def := range sectionDefinitions {
		_, contentStart, ok := findHeader(text, def.Header, 0)
		if !ok {
			continue
		}

		contentEnd := len(text)
		markers := append(append([]string{}, def.EndMarkers...), closingHeaders...)
		for _, marker := range markers {
			if start, _, found := findHeader(text, marker, contentStart); found && start < contentEnd {
				contentEnd = start
			}
		}

		content := strings.TrimLeft(text[contentStart:contentEnd], " \t\r\n:-")
		content = normalizeWhitespace(content)
		if len([]rune(content)) <= minSectionContentLength {
			continue
		}
		sections[def.Header] = content
	}
	return sections
}

// ExtractRationales turns free text into pending rationales. Known sections are used
// first, then keyword-anchored sentences, then a single generic rationale.
func ExtractRationales(text string, now time.Time) []model.PendingRationale {
	if strings.TrimSpace(text) == "" {
		return []model.PendingRationale{}
	}

	sections := ExtractSections(text)
	pending := make([]model.PendingRationale, 0, len(sectionDefinitions))

	for _, def := range sectionDefinitions {
		if def.Title == "" {
			continue
		}
		if content, ok := sections[def.Header]; ok {
			pending = append(pending, newPending(def.Title, content, now))
		}
	}

	if len(pending) == 0 {
		runes := []rune(text)
		lower := lowerRunes(runes)
		for _, rule := range keywordRules {
			if sentence := keywordSentence(runes, lower, rule.Keyword); sentence != "" {
				pending = append(pending, newPending(rule.Title, sentence, now))
			}
		}
	}

	if len(pending) == 0 {
		excerpt, ok := sections[executiveSummary]
		if !ok {
			excerpt = normalizeWhitespace(truncateRunes(text, genericExcerptLength))
		}
		pending = append(pending, newPending(GenericRationaleTitle, excerpt, now))
	}

	return pending
}

func newPending(title, excerpt string, now time.Time) model.PendingRationale {
	return model.PendingRationale{
		ID:          uuid.NewString(),
		Title:       truncateRunes(title, model.MaxTitleLength),
		Description: truncateWithEllipsis(excerpt, sectionDescriptionLength),
		ExtractedAt: now,
		SourceText:  excerpt,
	}
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// keywordSentence returns the sentence around the first occurrence of keyword,
// bounded to keywordWindow characters on either side of it
func keywordSentence(runes, lower []rune, keyword string) string {
	idx := indexRunes(lower, []rune(keyword))
	if idx < 0 {
		return ""
	}

	start := idx
	lowerBound := max(0, idx-keywordWindow)
	for start > lowerBound && !isSentenceEnd(runes[start-1]) {
		start--
	}

	upperBound := min(len(runes), idx+keywordWindow)
	end := idx
	for end < upperBound {
		if isSentenceEnd(runes[end]) {
			end++
			break
		}
		end++
	}

	return normalizeWhitespace(string(runes[start:end]))
}

type fieldPattern struct {
	patterns []*regexp.Regexp
}

// labeled matches "label: value" or "label - value". A label never starts inside a word
// or after a hyphen.
func labeled(labels ...string) fieldPattern {
	fp := fieldPattern{}
	for _, label := range labels {
		fp.patterns = append(fp.patterns, regexp.MustCompile(`(?i)(?:^|[^\w-])`+label+`\s*[:\-]\s*([^\r\n]+)`))
	}
	return fp
}

func (fp fieldPattern) find(text string) string {
	for _, re := range fp.patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

var (
	borrowerField       = labeled(`borrower(?:\s+name)?`, `obligor`, `client\s+name`)
	facilityTypeField   = labeled(`facility\s+type`, `loan\s+type`, `product\s+type`)
	facilityAmountField = labeled(`(?:facility|loan)\s+amount`, `approved\s+limit`, `credit\s+limit`)
	tenorField          = labeled(`tenor`, `loan\s+term`, `term`)
	approvalDateField   = labeled(`approval\s+date`, `date\s+of\s+approval`, `approved\s+on`)
)

// ExtractLoanMetadata reads labeled loan fields from text. Per field the first match wins.
func ExtractLoanMetadata(text string) model.LoanMetadata {
	meta := model.LoanMetadata{
		Borrower:       borrowerField.find(text),
		FacilityType:   facilityTypeField.find(text),
		FacilityAmount: facilityAmountField.find(text),
		Tenor:          tenorField.find(text),
	}
	if raw := approvalDateField.find(text); raw != "" {
		if d, ok := ParseApprovalDate(raw); ok {
			meta.ApprovalDate = &d
		}
	}
	return meta
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	monthDayYear = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\s*,?\s*(\d{4})\b`)
	dateTokens   = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{4}/\d{1,2}/\d{1,2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}\s+[A-Za-z]{3,9}\.?\s+\d{4})\b`)
)

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"2 January 2006",
	"2 Jan 2006",
}

const (
	minApprovalYear = 1900
	maxApprovalYear = 2100
)

// ParseApprovalDate reads a date from text. A "Month Day, Year" form is tried first,
// then common numeric and day-first forms within years 1900-2100. It never panics.
func ParseApprovalDate(text string) (time.Time, bool) {
	if m := monthDayYear.FindStringSubmatch(text); m != nil {
		month := monthNames[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day >= 1 && day <= 31 && year >= minApprovalYear {
			d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if d.Day() == day {
				return d, true
			}
		}
	}

	candidates := []string{strings.TrimSpace(text)}
	candidates = append(candidates, dateTokens.FindAllString(text, -1)...)
	for _, candidate := range candidates {
		if d, ok := parseWithLayouts(candidate); ok {
			return d, true
		}
		if d, ok := parseWithLayouts(strings.ReplaceAll(candidate, ".", "")); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseWithLayouts(candidate string) (time.Time, bool) {
	for _, layout := range fallbackLayouts {
		d, err := time.Parse(layout, candidate)
		if err != nil {
			continue
		}
		if d.Year() < minApprovalYear || d.Year() > maxApprovalYear {
			continue
		}
		y, mo, day := d.Date()
		return time.Date(y, mo, day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
