package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrNoTimeFound is returned when the input contains no recognizable time
// expression. Callers must treat it as a parse failure, never as "now".
var ErrNoTimeFound = errors.New("no time expression found in input")

// Parser extracts a concrete timestamp from free-form text such as
// "tomorrow at 9am" or "in 2 hours". Times without an explicit zone are
// interpreted in the configured location.
type Parser struct {
	w   *when.Parser
	loc *time.Location
}

// NewParser builds a Parser anchored to loc. A nil loc falls back to UTC.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w, loc: loc}
}

// Parse resolves the first time expression in text relative to base.
// Returns ErrNoTimeFound when nothing in the text reads as a time.
func (p *Parser) Parse(text string, base time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrNoTimeFound
	}

	result, err := p.w.Parse(text, base.In(p.loc))
	if err != nil {
		return time.Time{}, err
	}
	if result == nil {
		return time.Time{}, ErrNoTimeFound
	}
	return result.Time, nil
}
