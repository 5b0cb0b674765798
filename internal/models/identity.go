package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Identity is a resolved user: a stable anonymous id plus the
// display fields chosen once during profile setup.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Job      string `json:"job"`
}

// DisplayName renders the combined "Name (Job)" form used on posts.
func (i Identity) DisplayName() string {
	name := i.Username
	if name == "" {
		name = "Anonymous"
	}
	job := i.Job
	if job == "" {
		job = "No job specified"
	}
	return fmt.Sprintf("%s (%s)", name, job)
}

// Handle renders the @-prefixed form used on comments and messages.
func (i Identity) Handle() string {
	name := i.Username
	if name == "" {
		name = "Anonymous"
	}
	return "@" + name
}

// AvatarURL builds the placeholder avatar for a display name. Initials are
// the first two characters, not bytes, so multibyte names stay valid UTF-8.
func AvatarURL(name string) string {
	initials := "??"
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		runes := []rune(trimmed)
		if len(runes) > 2 {
			runes = runes[:2]
		}
		initials = strings.ToUpper(string(runes))
	}
	return "https://placehold.co/100x100?text=" + url.QueryEscape(initials)
}
