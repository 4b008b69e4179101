// Package recorder persists live meeting media to disk: immutable
// per-chunk raw files for later assembly, plus continuous per-user audio and
// per-meeting video streams with explicit gap filling.
package recorder

import (
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// RawAudioSubdir and RawVideoSubdir hold the immutable timestamped
	// chunks the assembly stage consumes.
	RawAudioSubdir = "raw/audio"
	RawVideoSubdir = "raw/video"
)

// SanitizeName rewrites a meeting or user identifier into a safe filesystem
// name. Meeting UUIDs routinely contain characters like '/' and '='.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*=`, r) || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// MeetingDir resolves the recording directory for a meeting UUID.
func MeetingDir(base, meetingUUID string) string {
	return filepath.Join(base, SanitizeName(meetingUUID))
}
