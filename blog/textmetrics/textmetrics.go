// Package textmetrics computes display metrics for post content: word count and an
// estimated reading time.
package textmetrics

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/net/html"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// English reading speed in characters per minute, and how far a fast or slow reader
// strays from it. These match the reader mode estimate in Firefox.
const (
	DefaultCPMBase     = 987
	DefaultCPMVariance = 118
)

// Config holds the reading speed bounds.
type Config struct {
	CPMBase     int `yaml:"cpm_base"`
	CPMVariance int `yaml:"cpm_variance"`
}

// DefaultConfig returns the Firefox reader mode bounds.
func DefaultConfig() Config {
	return Config{CPMBase: DefaultCPMBase, CPMVariance: DefaultCPMVariance}
}

// Metrics is computed once per fetched post and never mutated.
type Metrics struct {
	WordCount        int
	WordCountLabel   string
	ReadingTimeLabel string
}

// Calculator computes Metrics with a fixed Config.
type Calculator struct {
	cfg     Config
	printer *message.Printer
}

// NewCalculator returns a Calculator for cfg. A config whose slow bound is not
// positive falls back to DefaultConfig.
func NewCalculator(cfg Config) *Calculator {
	if cfg.CPMBase-cfg.CPMVariance <= 0 || cfg.CPMVariance < 0 {
		cfg = DefaultConfig()
	}
	return &Calculator{
		cfg:     cfg,
		printer: message.NewPrinter(language.English),
	}
}

// Config returns the bounds in use.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Compute returns all metrics for content.
func (c *Calculator) Compute(content string) Metrics {
	words := WordCount(content)
	return Metrics{
		WordCount:        words,
		WordCountLabel:   c.FormatCount(words),
		ReadingTimeLabel: c.ReadingTime(content),
	}
}

// FormatCount groups the digits of n in threes, separated by commas.
func (c *Calculator) FormatCount(n int) string {
	return c.printer.Sprintf("%d", n)
}

// ReadingTime returns a label such as "1 minute", "4 minutes" or "2-3 minutes".
//
// The plural suffix follows the slow estimate only, so a range always reads as
// minutes.
func (c *Calculator) ReadingTime(content string) string {
	length := utf8.RuneCountInString(content)

	low := c.cfg.CPMBase - c.cfg.CPMVariance
	high := c.cfg.CPMBase + c.cfg.CPMVariance

	slow := ceilDiv(length, low)
	fast := ceilDiv(length, high)

	formatted := fmt.Sprint(slow)
	if slow != fast {
		formatted = fmt.Sprintf("%d-%d", fast, slow)
	}

	plural := "s"
	if slow == 1 {
		plural = ""
	}
	return formatted + " minute" + plural
}

func ceilDiv(n, d int) int {
	if n <= 0 || d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// FormatCount groups the digits of n using the default calculator.
func FormatCount(n int) string {
	return defaultCalculator.FormatCount(n)
}

// ReadingTime estimates reading time using the default reading speed.
func ReadingTime(content string) string {
	return defaultCalculator.ReadingTime(content)
}

var defaultCalculator = NewCalculator(DefaultConfig())

// WordCount counts words in content using Unicode word boundaries. Markup is
// ignored: only text nodes are counted, and script and style bodies are skipped.
func WordCount(content string) int {
	count := 0
	for _, text := range textRuns(content) {
		state := -1
		var word string
		for len(text) > 0 {
			word, text, state = uniseg.FirstWordInString(text, state)
			if isWord(word) {
				count++
			}
		}
	}
	return count
}

func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// textRuns splits content into its text nodes. Plain text without markup comes back
// as a single run.
func textRuns(content string) []string {
	if !strings.ContainsRune(content, '<') {
		return []string{content}
	}

	var runs []string
	skip := 0
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// Malformed markup: count what is left as text.
				runs = append(runs, string(z.Raw()))
			}
			return runs
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				runs = append(runs, string(z.Text()))
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
