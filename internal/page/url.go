package page

import (
	"net/url"
	"regexp"
)

// ExpectedURLFormat is shown to users who pass something else.
const ExpectedURLFormat = "https://x.com/<user>/article/<id> or https://x.com/<user>/status/<id>"

var articleHosts = map[string]bool{
	"x.com":           true,
	"twitter.com":     true,
	"www.x.com":       true,
	"www.twitter.com": true,
}

var articlePath = regexp.MustCompile(`^/[^/]+/(article|status)/\d+`)

// IsArticleURL reports whether raw points at an X article or post.
func IsArticleURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	if !articleHosts[u.Hostname()] {
		return false
	}
	return articlePath.MatchString(u.Path)
}
