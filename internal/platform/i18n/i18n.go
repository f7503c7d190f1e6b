// Package i18n formats user-facing counts and phrases through x/text so
// plural rules and number grouping follow the reader's locale.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyStreakDays   = "streak.days"
	KeyItemCount    = "items.count"
	KeyCorrectRatio = "attempts.correct_ratio"
	KeyDailyGoal    = "dashboard.daily_goal"
)

// DefaultLocale is used when a request carries no usable Accept-Language.
var DefaultLocale = language.AmericanEnglish

var messages = mustBuild()

func mustBuild() *catalog.Builder {
	builder := catalog.NewBuilder(catalog.Fallback(DefaultLocale))
	entries := []struct {
		key string
		msg catalog.Message
	}{
		{KeyStreakDays, plural.Selectf(1, "%d",
			"=0", "No streak yet",
			plural.One, "%d day streak",
			plural.Other, "%d day streak")},
		{KeyItemCount, plural.Selectf(1, "%d",
			"=0", "no items",
			plural.One, "%d item",
			plural.Other, "%d items")},
		{KeyCorrectRatio, catalog.String("%d of %d correct")},
		{KeyDailyGoal, plural.Selectf(1, "%d",
			plural.One, "%d question a day",
			plural.Other, "%d questions a day")},
	}
	for _, entry := range entries {
		if err := builder.Set(DefaultLocale, entry.key, entry.msg); err != nil {
			panic(fmt.Sprintf("i18n: register %s: %v", entry.key, err))
		}
	}
	return builder
}

// Printer formats messages for the locale named by tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

// FromAcceptLanguage picks the best supported locale for an Accept-Language header.
func FromAcceptLanguage(header string) language.Tag {
	header = strings.TrimSpace(header)
	if header == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	matcher := language.NewMatcher(messages.Languages())
	_, index, _ := matcher.Match(tags...)
	return messages.Languages()[index]
}
