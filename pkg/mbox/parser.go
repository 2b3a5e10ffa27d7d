package mbox

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

// Message is one parsed mail item extracted from an mbox block
type Message struct {
	MessageID string
	Subject   string
	Author    string
	Date      time.Time
	Content   string
	ThreadID  string
}

var (
	boundary     = []byte("\nFrom ")
	headerNameRe = regexp.MustCompile(`^[A-Za-z-]+:`)
)

// SplitMessages frames an mbox buffer into message blocks. Boundaries are the
// newline-delimited occurrences of the "From " envelope sentinel; the block
// extents run from one boundary to the next and from the last boundary to the
// end of the buffer.
//
// A body line that itself starts with "From " (a quoted forwarded envelope) is
// indistinguishable from a real boundary and incorrectly splits the message.
// That ambiguity is inherent to the mbox format and is kept as-is.
func SplitMessages(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}

	starts := []int{0}
	position := 0
	for {
		idx := bytes.Index(data[position:], boundary)
		if idx == -1 {
			break
		}
		abs := position + idx
		starts = append(starts, abs+1) // +1 to skip the newline
		position = abs + len(boundary)
	}

	blocks := make([][]byte, 0, len(starts))
	for i, start := range starts {
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		blocks = append(blocks, data[start:end])
	}
	return blocks
}

// Parse frames the buffer and parses every block. Blocks that cannot be parsed
// (empty, or missing the header/body separator) are logged and skipped so that
// one bad message never aborts the whole ingestion.
func Parse(data []byte) []*Message {
	blocks := SplitMessages(data)
	now := time.Now()

	messages := make([]*Message, 0, len(blocks))
	for i, block := range blocks {
		msg := ParseBlock(block, now)
		if msg == nil {
			log.Printf("[MboxParser] Skipping unparseable block %d/%d", i+1, len(blocks))
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// ParseBlock parses a single mbox message block. It returns nil when the block
// is blank or has no blank line separating headers from body. now anchors the
// date plausibility window.
func ParseBlock(block []byte, now time.Time) *Message {
	text := string(block)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sep := strings.Index(text, "\n\n")
	if sep == -1 {
		return nil
	}
	headerText := text[:sep]
	body := text[sep+2:]

	headers := parseHeaders(headerText)

	messageID := headers["message-id"]
	if messageID == "" {
		messageID = generateMessageID(headerText, body)
	}

	rawSubject := headers["subject"]

	return &Message{
		MessageID: stripAngles(messageID),
		Subject:   CleanSubject(rawSubject),
		Author:    CleanAuthor(headers["from"]),
		Date:      NormalizeDate(headers["date"], now),
		Content:   CleanContent(body),
		ThreadID:  ThreadID(headers["in-reply-to"], headers["references"], rawSubject),
	}
}

// parseHeaders folds continuation lines into the preceding header value.
// Keys are lower-cased; a later duplicate name overwrites the earlier value.
func parseHeaders(headerText string) map[string]string {
	headers := make(map[string]string)

	var name, value string
	flush := func() {
		if name != "" {
			headers[strings.ToLower(name)] = strings.TrimSpace(value)
		}
	}

	for _, line := range strings.Split(headerText, "\n") {
		switch {
		case headerNameRe.MatchString(line):
			flush()
			colon := strings.Index(line, ":")
			name = line[:colon]
			value = line[colon+1:]
		case strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"):
			value += " " + strings.TrimSpace(line)
		}
	}
	flush()

	return headers
}

// generateMessageID derives a stable synthetic identity for messages without a
// Message-ID header. The hash covers the full header block and body so that
// re-ingesting identical content yields the same identity.
func generateMessageID(headerText, body string) string {
	sum := md5.Sum([]byte(headerText + body))
	return fmt.Sprintf("<generated-%x@mbox>", sum)
}
