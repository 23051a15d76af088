package listening

import (
	urlpkg "net/url"
	"regexp"
	"strings"
)

var videoIDFallback = regexp.MustCompile(`(?:v=|/v/|youtu\.be/|embed/|shorts/)([A-Za-z0-9_-]{11})`)

// ExtractVideoID returns the 11 character YouTube id of url, or "" when none
// can be found.
func ExtractVideoID(url string) string {
	url = strings.TrimSpace(url)

	parsed, err := urlpkg.Parse(url)
	if err == nil {
		host := strings.ToLower(parsed.Host)
		path := strings.Trim(parsed.Path, "/")

		if strings.Contains(host, "youtube.com") {
			if v := parsed.Query().Get("v"); len(v) == 11 {
				return v
			}

			parts := strings.Split(path, "/")
			if len(parts) >= 2 {
				switch parts[0] {
				case "shorts", "embed", "v", "live":
					if len(parts[1]) == 11 {
						return parts[1]
					}
				}
			}
		}

		if strings.Contains(host, "youtu.be") {
			candidate := strings.Split(path, "/")[0]
			if len(candidate) == 11 {
				return candidate
			}
		}
	}

	if m := videoIDFallback.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}

	return ""
}
