package domain

import (
	"strings"
	"time"
)

// Filter is one rule of a subscription. The rule text is opaque to the editor.
type Filter struct {
	ID             string
	SubscriptionID string
	Text           string
	Disabled       bool
	HitCount       int
	LastHitAt      *time.Time
	Position       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FilterInput holds input values for NewFilter.
type FilterInput struct {
	ID             string
	SubscriptionID string
	Text           string
	Disabled       bool
	Position       int
}

// NewFilter constructs a new value for this package.
func NewFilter(in FilterInput, now time.Time) (Filter, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.SubscriptionID = strings.TrimSpace(in.SubscriptionID)
	text, err := NormalizeFilterText(in.Text)
	if err != nil {
		return Filter{}, err
	}
	if in.ID == "" || in.SubscriptionID == "" {
		return Filter{}, ErrInvalidID
	}
	if in.Position < 0 {
		return Filter{}, ErrInvalidPosition
	}
	return Filter{
		ID:             in.ID,
		SubscriptionID: in.SubscriptionID,
		Text:           text,
		Disabled:       in.Disabled,
		Position:       in.Position,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}, nil
}

// NormalizeFilterText trims a rule and rejects blank or multi-line input.
func NormalizeFilterText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, "\r\n") {
		return "", ErrInvalidText
	}
	return text, nil
}

// SetText replaces the rule text.
func (f *Filter) SetText(text string, now time.Time) error {
	normalized, err := NormalizeFilterText(text)
	if err != nil {
		return err
	}
	f.Text = normalized
	f.UpdatedAt = now.UTC()
	return nil
}

// SetDisabled handles set disabled.
func (f *Filter) SetDisabled(disabled bool, now time.Time) {
	f.Disabled = disabled
	f.UpdatedAt = now.UTC()
}

// RecordHit counts one match of the filter.
func (f *Filter) RecordHit(now time.Time) {
	ts := now.UTC()
	f.HitCount++
	f.LastHitAt = &ts
}

// IsComment reports whether the text is a list comment rather than a rule.
func (f Filter) IsComment() bool {
	return strings.HasPrefix(f.Text, "!")
}

// IsElemHide reports whether the rule hides page elements instead of blocking requests.
func (f Filter) IsElemHide() bool {
	return strings.Contains(f.Text, "##") || strings.Contains(f.Text, "#@#")
}

// Active reports whether the filter takes part in matching and can be toggled.
func (f Filter) Active() bool {
	return !f.IsComment()
}

// Slow reports whether a blocking rule has no keyword usable for fast lookup.
func (f Filter) Slow() bool {
	if !f.Active() || f.IsElemHide() {
		return false
	}
	text := strings.TrimPrefix(f.Text, "@@")
	if idx := strings.LastIndex(text, "$"); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 2 && strings.HasPrefix(text, "/") && strings.HasSuffix(text, "/") {
		return true
	}
	return !hasKeyword(strings.ToLower(text))
}

// hasKeyword reports whether text contains an alphanumeric run of at least three
// characters that is not touching a wildcard.
func hasKeyword(text string) bool {
	start := -1
	for i := 0; i <= len(text); i++ {
		if i < len(text) && isKeywordChar(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			before := start == 0 || text[start-1] != '*'
			after := i == len(text) || text[i] != '*'
			if i-start >= 3 && before && after {
				return true
			}
			start = -1
		}
	}
	return false
}

// isKeywordChar reports whether c may be part of a lookup keyword.
func isKeywordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '%'
}
