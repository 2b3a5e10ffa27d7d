package mbox

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// SentinelDate marks a header date that could not be validated. It is a fixed
// point in the past rather than time.Now() so that bad dates stay recognizable
// as bad instead of looking freshly ingested.
var SentinelDate = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	listTagRe     = regexp.MustCompile(`\[[\w-]+\]\s*`)
	replyPrefixRe = regexp.MustCompile(`^(?i)(re|fwd|fw):\s*`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	authorRe      = regexp.MustCompile(`^(.+?)\s*<(.+?)>$`)
	quotedLineRe  = regexp.MustCompile(`(?m)^>.*$`)
	attributionRe = regexp.MustCompile(`(?m)^\s*On .* wrote:\s*$`)
	newlineRunRe  = regexp.MustCompile(`\n{3,}`)
	anglesRepl    = strings.NewReplacer("<", "", ">", "")
)

// CleanSubject strips mailing-list tags and reply/forward prefixes and
// collapses whitespace. An empty result becomes "No Subject".
func CleanSubject(subject string) string {
	subject = listTagRe.ReplaceAllString(subject, "")
	for {
		trimmed := replyPrefixRe.ReplaceAllString(strings.TrimSpace(subject), "")
		if trimmed == subject {
			break
		}
		subject = trimmed
	}
	subject = strings.TrimSpace(whitespaceRe.ReplaceAllString(subject, " "))
	if subject == "" {
		return "No Subject"
	}
	return subject
}

// CleanAuthor extracts the display name from a "Name <email>" From header,
// falling back to the email address or the raw string. An empty result
// becomes "Unknown".
func CleanAuthor(from string) string {
	from = strings.TrimSpace(from)
	if m := authorRe.FindStringSubmatch(from); m != nil {
		name := strings.Trim(strings.TrimSpace(m[1]), `"'`)
		if name == "" {
			name = strings.TrimSpace(m[2])
		}
		from = name
	} else {
		from = strings.Trim(from, `"'`)
	}
	if from == "" {
		return "Unknown"
	}
	return from
}

// CleanContent removes quoted lines and "On ... wrote:" attribution lines from
// a message body and collapses runs of blank lines.
func CleanContent(body string) string {
	body = quotedLineRe.ReplaceAllString(body, "")
	body = attributionRe.ReplaceAllString(body, "")
	body = newlineRunRe.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// ThreadID derives a thread identity from reply headers, in priority order:
// In-Reply-To, the first token of References, then a hash of the base subject
// for follow-ups whose subject still carries a reply prefix. Returns "" when
// no parent is recoverable (the message is its own thread root).
func ThreadID(inReplyTo, references, subject string) string {
	if inReplyTo != "" {
		return stripAngles(inReplyTo)
	}

	if references != "" {
		refs := strings.Fields(references)
		if len(refs) > 0 {
			return stripAngles(refs[0])
		}
	}

	base := strings.TrimSpace(listTagRe.ReplaceAllString(subject, ""))
	isReply := false
	for strings.HasPrefix(strings.ToLower(base), "re:") {
		isReply = true
		base = strings.TrimSpace(base[3:])
	}
	if isReply && base != "" {
		sum := md5.Sum([]byte(strings.ToLower(base)))
		return fmt.Sprintf("thread-%x", sum)
	}

	return ""
}

// NormalizeDate parses a free-form header date string. The result is accepted
// only when it parses and its year falls after 1990 and no more than one year
// past now; anything else yields SentinelDate.
func NormalizeDate(raw string, now time.Time) time.Time {
	if strings.TrimSpace(raw) == "" {
		return SentinelDate
	}

	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return SentinelDate
	}

	year := parsed.Year()
	if year <= 1990 || year > now.Year()+1 {
		return SentinelDate
	}
	return parsed
}

func stripAngles(s string) string {
	return anglesRepl.Replace(strings.TrimSpace(s))
}
