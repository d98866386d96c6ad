package commands

import (
	"errors"
	"net/url"
	"path"
	"strconv"
	"strings"
)

var errBadLink = errors.New("not a message link")

// ParseMessageLink reads the guild, channel and message ids from the last
// three path segments of a message link.
func ParseMessageLink(link string) (MessageRef, error) {
	var parts []string
	for _, p := range strings.Split(strings.TrimSpace(link), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 {
		return MessageRef{}, errBadLink
	}
	ids := make([]uint64, 3)
	for i, p := range parts[len(parts)-3:] {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return MessageRef{}, errBadLink
		}
		ids[i] = n
	}
	return MessageRef{GuildID: ids[0], ChannelID: ids[1], MessageID: ids[2]}, nil
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// IsImageURL reports whether s is an http(s) link to an image file.
func IsImageURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// imageOf picks the image a quote of m shows: the first attachment, else
// the first image link in the text.
func imageOf(m *Message) string {
	if len(m.Attachments) > 0 {
		return m.Attachments[0]
	}
	for _, word := range strings.Fields(m.Content) {
		if IsImageURL(word) {
			return word
		}
	}
	return ""
}
