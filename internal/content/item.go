package content

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultExam is assumed when a set or item does not name its exam.
const DefaultExam = "SAT"

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 8 << 20

// Item is one practice question kept as its original JSON object so
// fields the app does not know about survive a round trip.
type Item []byte

// Choice is one answer option.
type Choice struct {
	Key  string
	Text string
}

// MarshalJSON emits the stored object unchanged.
func (i Item) MarshalJSON() ([]byte, error) {
	if len(i) == 0 {
		return []byte("null"), nil
	}
	return i, nil
}

// UnmarshalJSON accepts any JSON object.
func (i *Item) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return errors.New("item must be a JSON object")
	}
	*i = append((*i)[:0], data...)
	return nil
}

// Get reads a gjson path from the item.
func (i Item) Get(path string) gjson.Result {
	return gjson.GetBytes(i, path)
}

func (i Item) ID() string       { return i.Get("id").String() }
func (i Item) Exam() string     { return i.Get("exam").String() }
func (i Item) Section() string  { return i.Get("section").String() }
func (i Item) Category() string { return i.Get("category").String() }
func (i Item) Type() string     { return i.Get("type").String() }
func (i Item) Difficulty() int  { return int(i.Get("difficulty").Int()) }
func (i Item) Answer() string   { return strings.TrimSpace(i.Get("answer").String()) }

// Stem prefers the LaTeX stem and falls back to plain text.
func (i Item) Stem() string {
	return firstString(i, "stem_latex", "stem")
}

// Explanation prefers the LaTeX explanation and falls back to plain text.
func (i Item) Explanation() string {
	return firstString(i, "explanation_latex", "explanation")
}

// Tags returns the string entries of the tags array.
func (i Item) Tags() []string {
	var tags []string
	i.Get("tags").ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String && value.Str != "" {
			tags = append(tags, value.Str)
		}
		return true
	})
	return tags
}

// Choices returns the options in document order. Both {"A": "..."} objects
// and ["...", "..."] arrays are accepted; arrays are keyed A, B, C...
func (i Item) Choices() []Choice {
	var choices []Choice
	result := i.Get("choices")
	switch {
	case result.IsObject():
		result.ForEach(func(key, value gjson.Result) bool {
			choices = append(choices, Choice{Key: key.String(), Text: value.String()})
			return true
		})
	case result.IsArray():
		for idx, value := range result.Array() {
			choices = append(choices, Choice{Key: string(rune('A' + idx)), Text: value.String()})
		}
	}
	return choices
}

// IsCorrect compares a submitted choice key with the answer key.
func (i Item) IsCorrect(choice string) bool {
	answer := i.Answer()
	return answer != "" && strings.EqualFold(answer, strings.TrimSpace(choice))
}

func firstString(i Item, paths ...string) string {
	for _, path := range paths {
		if value := i.Get(path).String(); value != "" {
			return value
		}
	}
	return ""
}

// ParseJSONL reads one JSON object per line, skipping blank lines. CRLF
// line endings are accepted.
func ParseJSONL(r io.Reader) ([]Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var items []Item
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
			return nil, fmt.Errorf("line %d: not a JSON object", line)
		}
		items = append(items, Item(bytes.Clone(raw)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return items, nil
}

// ParseJSONArray decodes a JSON array of objects.
func ParseJSONArray(data []byte) ([]Item, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	result := gjson.ParseBytes(data)
	if !result.IsArray() {
		return nil, errors.New("expected a JSON array")
	}
	elements := result.Array()
	items := make([]Item, 0, len(elements))
	for idx, element := range elements {
		if !element.IsObject() {
			return nil, fmt.Errorf("element %d: not a JSON object", idx)
		}
		items = append(items, Item(element.Raw))
	}
	return items, nil
}

// ExamOf returns the exam named by the first item, or DefaultExam.
func ExamOf(items []Item) string {
	if len(items) > 0 {
		if exam := items[0].Exam(); exam != "" {
			return exam
		}
	}
	return DefaultExam
}
