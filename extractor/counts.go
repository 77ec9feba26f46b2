package extractor

import (
	"regexp"

	"github.com/use-agent/unfurl/models"
)

// countToken matches "1.2K", "340", "12,345" or "3M": an integer part with
// optional thousands separators, an optional decimal part and an optional
// K/M suffix in either case.
const countToken = `(\d[\d,]*(?:\.\d+)?[KkMm]?)`

var (
	followersRe = regexp.MustCompile(countToken + `\s+Followers`)
	followingRe = regexp.MustCompile(countToken + `\s+Following`)
	postsRe     = regexp.MustCompile(countToken + `\s+Posts`)
)

// Counts are the profile statistics some platforms embed in og:description,
// e.g. "1.2K Followers, 340 Following, 58 Posts - See Instagram photos...".
type Counts struct {
	Followers string
	Following string
	Posts     string
}

// ParseCounts extracts the first count token before each keyword.
// Missing keywords leave the field empty.
func ParseCounts(description string) Counts {
	return Counts{
		Followers: firstGroup(followersRe, description),
		Following: firstGroup(followingRe, description),
		Posts:     firstGroup(postsRe, description),
	}
}

// Enrich copies the counts found in res.Description into res.
func Enrich(res *models.PreviewResult) {
	if res.Description == "" {
		return
	}
	c := ParseCounts(res.Description)
	res.Followers = c.Followers
	res.Following = c.Following
	res.PostsCount = c.Posts
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
