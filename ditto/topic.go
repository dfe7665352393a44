package ditto

import (
	"regexp"
	"strings"
)

// topicCharsetRE matches any rune not permitted in a bus topic segment.
// Underscore, slash, tilde, and braces survive; everything else collapses
// to underscore.
var topicCharsetRE = regexp.MustCompile(`[^0-9a-zA-Z_/~{}]`)

// SanitizeTopic maps an arbitrary thing-derived name onto a valid bus topic.
//
// Ditto thing IDs carry a namespace separated by a colon
// (org.smartcity:streetlight-001) and dots inside the namespace. Neither
// character is topic-safe, so both become underscores before the general
// charset sweep. A leading slash is added when absent so every topic is
// rooted. The mapping is idempotent: sanitizing an already-sanitized name
// returns it unchanged.
func SanitizeTopic(name string) string {
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, ".", "_")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return topicCharsetRE.ReplaceAllString(name, "_")
}
