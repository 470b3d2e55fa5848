package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/roach88/dios/internal/clock"
	"github.com/roach88/dios/internal/domain"
)

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// resolveDate accepts YYYY-MM-DD or a natural-language date ("today",
// "yesterday", "last monday") relative to c. Empty means today.
func resolveDate(text string, c clock.Clock) (domain.Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return clock.Today(c), nil
	}
	if d, err := domain.ParseDate(text); err == nil {
		return d, nil
	}

	r, err := dateParser.Parse(text, c.Now())
	if err != nil {
		return domain.Date{}, fmt.Errorf("%w %q: %v", errInvalidDate, text, err)
	}
	if r == nil || !wholeMatch(text, r.Index, r.Text) {
		return domain.Date{}, fmt.Errorf("%w %q", errInvalidDate, text)
	}
	return domain.DateOf(r.Time), nil
}

// wholeMatch reports whether the match at index covers all of text apart
// from surrounding whitespace.
func wholeMatch(text string, index int, match string) bool {
	end := index + len(match)
	if index < 0 || end > len(text) {
		return false
	}
	return strings.TrimSpace(text[:index]) == "" && strings.TrimSpace(text[end:]) == ""
}

func optionalDate(args []string, c clock.Clock) (domain.Date, error) {
	if len(args) == 0 {
		return clock.Today(c), nil
	}
	return resolveDate(args[0], c)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: id must be a positive integer, got %q", errInvalidArgument, s)
	}
	return id, nil
}

func checkPage(limit, offset int) error {
	if limit < 1 || limit > maxPageSize {
		return fmt.Errorf("%w: limit must be between 1 and %d, got %d", errInvalidArgument, maxPageSize, limit)
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", errInvalidArgument, offset)
	}
	return nil
}
