package catalog

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const fallbackPrefix = "sha256:"

var (
	placeholderRe   = regexp.MustCompile(`\{(\d+)\}`)
	newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// RenderMessage substitutes {N} placeholders with args[N]. Placeholders without a matching argument are kept.
func RenderMessage(template string, args []string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		idx, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || idx >= len(args) {
			return m
		}
		return args[idx]
	})
}

// SplitMessage returns the first line of text and the trimmed remainder.
// "\r\n" and lone "\r" count as line breaks, so the remainder only holds "\n".
func SplitMessage(text string) (string, string) {
	text = newlineReplacer.Replace(text)
	first, rest, found := strings.Cut(text, "\n")
	first = strings.TrimRightFunc(first, unicode.IsSpace)
	if !found {
		return first, ""
	}
	return first, strings.TrimSpace(rest)
}

// FallbackFingerprint hashes a message for findings that have no source context.
func FallbackFingerprint(message, extra string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(message + "\n" + extra)))
	return fmt.Sprintf("%s%x", fallbackPrefix, sum[:])
}

// singleLine collapses whitespace runs, line breaks included, into single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
