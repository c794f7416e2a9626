package pubmed

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

var monthToNum = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "sept": "09", "oct": "10", "nov": "11", "dec": "12",
}

var (
	yearRe  = regexp.MustCompile(`\d{4}`)
	dayRe   = regexp.MustCompile(`\d{1,2}`)
	monthRe = regexp.MustCompile(`\b([A-Za-z]{3,9})\b`)
	wordDayRe = regexp.MustCompile(`\b(\d{1,2})\b`)
)

func normalizeYear(value string) string {
	return yearRe.FindString(strings.TrimSpace(value))
}

func normalizeMonth(value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ""
	}

	if n, err := strconv.Atoi(raw); err == nil {
		if n >= 1 && n <= 12 {
			return fmt.Sprintf("%02d", n)
		}

		return ""
	}

	lower := strings.ToLower(raw)

	key := lower
	if len(key) > 4 {
		key = key[:4]
	}
	key = strings.TrimRight(key, ".")

	if m, ok := monthToNum[key]; ok {
		return m
	}

	if len(lower) >= 3 {
		if m, ok := monthToNum[lower[:3]]; ok {
			return m
		}
	}

	return ""
}

func normalizeDay(value string) string {
	digits := dayRe.FindString(strings.TrimSpace(value))
	if digits == "" {
		return ""
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 31 {
		return ""
	}

	return fmt.Sprintf("%02d", n)
}

// normalizeMedlineDate converts loose MEDLINE date strings such as
// "2026 Jan-Feb" or "2026 Mar 15" into "YYYY", "YYYY-MM" or "YYYY-MM-DD".
// When the string carries no recognizable year it falls back to generic
// date parsing before giving up.
func normalizeMedlineDate(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}

	year := normalizeYear(text)
	if year == "" {
		if t, err := dateparse.ParseAny(text); err == nil {
			return t.Format("2006-01-02")
		}

		return ""
	}

	monthMatch := monthRe.FindStringSubmatchIndex(text)
	if monthMatch == nil {
		return year
	}

	month := normalizeMonth(text[monthMatch[2]:monthMatch[3]])
	if month == "" {
		return year
	}

	rest := text[monthMatch[1]:]
	if dayMatch := wordDayRe.FindString(rest); dayMatch != "" {
		if day := normalizeDay(dayMatch); day != "" {
			return year + "-" + month + "-" + day
		}
	}

	return year + "-" + month
}

// formatDateParts assembles the most precise date the parts allow.
func formatDateParts(year, month, day string) string {
	y := normalizeYear(year)
	if y == "" {
		return ""
	}

	m := normalizeMonth(month)
	if m == "" {
		return y
	}

	d := normalizeDay(day)
	if d == "" {
		return y + "-" + m
	}

	return y + "-" + m + "-" + d
}
