package prismlate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultCharLimit is the default character budget per batch.
const DefaultCharLimit = 3000

// ChunkSeparator joins the translations of an oversized plain field.
const ChunkSeparator = "\n\n"

// BatchEntry pairs a field with text to translate. Chunk and Chunks are
// set when the text is one piece of an oversized field.
type BatchEntry struct {
	Field  Field
	Text   string
	Chunk  int
	Chunks int
}

// Batch is an ordered group of entries bounded by a character budget.
type Batch struct {
	Entries   []BatchEntry
	Oversized bool // Singleton chunk of a field larger than the budget
}

// Len returns the summed text length of the batch in characters.
func (b Batch) Len() int {
	n := 0
	for _, e := range b.Entries {
		n += utf8.RuneCountInString(e.Text)
	}
	return n
}

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// CreateBatches packs fields greedily into batches whose combined text
// does not exceed charLimit. A field larger than the limit is split into
// chunks, each emitted as its own singleton batch.
func CreateBatches(fields []Field, charLimit int) []Batch {
	if charLimit <= 0 {
		charLimit = DefaultCharLimit
	}

	var batches []Batch
	var current []BatchEntry
	currentLen := 0

	for _, f := range fields {
		text := f.Text()
		n := utf8.RuneCountInString(text)

		if n > charLimit {
			if len(current) > 0 {
				batches = append(batches, Batch{Entries: current})
				current = nil
				currentLen = 0
			}
			chunks := SplitLargeText(text, charLimit)
			for i, chunk := range chunks {
				batches = append(batches, Batch{
					Entries:   []BatchEntry{{Field: f, Text: chunk, Chunk: i, Chunks: len(chunks)}},
					Oversized: true,
				})
			}
			continue
		}

		if currentLen+n > charLimit && len(current) > 0 {
			batches = append(batches, Batch{Entries: current})
			current = nil
			currentLen = 0
		}
		current = append(current, BatchEntry{Field: f, Text: text})
		currentLen += n
	}

	if len(current) > 0 {
		batches = append(batches, Batch{Entries: current})
	}
	return batches
}

// SplitLargeText splits text on paragraph boundaries, accumulating
// paragraphs until the limit would be exceeded. Chunks still over the
// limit are hard-split on character boundaries.
func SplitLargeText(text string, charLimit int) []string {
	if charLimit <= 0 {
		charLimit = DefaultCharLimit
	}

	var chunks []string
	current := ""
	for _, para := range paragraphBreak.Split(text, -1) {
		if current == "" {
			current = para
			continue
		}
		joined := current + ChunkSeparator + para
		if utf8.RuneCountInString(joined) > charLimit {
			chunks = append(chunks, current)
			current = para
		} else {
			current = joined
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	var out []string
	for _, chunk := range chunks {
		out = append(out, hardSplit(chunk, charLimit)...)
	}
	return out
}

// JoinChunks reassembles chunk translations in their original order.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, ChunkSeparator)
}

func hardSplit(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	var out []string
	for len(runes) > 0 {
		n := limit
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// SplitHTMLBlocks splits an HTML fragment on top-level node boundaries so
// that no chunk exceeds charLimit unless a single top-level node does.
// Concatenating the chunks yields the serialized fragment.
func SplitHTMLBlocks(fragment string, charLimit int) ([]string, error) {
	if charLimit <= 0 {
		charLimit = DefaultCharLimit
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return nil, &TranslationError{Message: "failed to parse rich text", Cause: err}
	}

	var chunks []string
	var current strings.Builder
	for n := doc.Find("body").Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		var b strings.Builder
		if err := html.Render(&b, n); err != nil {
			return nil, &TranslationError{Message: "failed to render rich text", Cause: err}
		}
		block := b.String()
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+utf8.RuneCountInString(block) > charLimit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(block)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks, nil
}
