// Package privacy scrubs user-identifying data from telemetry messages.
// Tape paths and URLs are replaced by stable hashes so repeated reports about
// the same file can still be grouped.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	urlPattern  = regexp.MustCompile(`\b(?:https?|file)://\S+`)
	pathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[/\\][^/\\\s:"']+)+`)
)

// ScrubMessage anonymizes URLs and absolute file paths in message.
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	return pathPattern.ReplaceAllStringFunc(message, AnonymizePath)
}

// AnonymizeURL keeps the scheme and port of rawURL and hashes the rest.
func AnonymizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return "url-" + shortHash(rawURL)
	}
	parts := []string{parsed.Scheme}
	if port := parsed.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	parts = append(parts, shortHash(parsed.Host+parsed.Path))
	return "url-" + strings.Join(parts, "-")
}

// AnonymizePath hashes every directory and the base name of path but keeps
// the file extension, so a tape path still reads as a .wav in reports.
func AnonymizePath(path string) string {
	ext := filepath.Ext(path)
	trimmed := strings.TrimSuffix(path, ext)
	segments := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' || r == '\\' })
	if len(segments) == 0 {
		return path
	}
	for i, segment := range segments {
		if strings.HasSuffix(segment, ":") {
			continue // drive letter
		}
		segments[i] = "seg-" + shortHash(segment)
	}
	return "/" + strings.Join(segments, "/") + ext
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum[:4])
}
