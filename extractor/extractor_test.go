package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, rawHTML, pageURL string) *Document {
	t.Helper()
	doc, err := Parse(rawHTML, pageURL)
	require.NoError(t, err)
	return doc
}

func TestPrimary_TitleWithoutImage(t *testing.T) {
	doc := mustParse(t, `<html><head>
		<meta property="og:title" content="Example">
	</head><body></body></html>`, "https://example.com/")

	res := Primary(doc, "https://example.com", DefaultTitlePlaceholder)

	assert.Equal(t, "Example", res.Title)
	assert.Equal(t, "", res.Description)
	assert.Equal(t, "", res.Image)
	assert.Equal(t, "https://example.com", res.URL)
	assert.False(t, res.Blocked)
}

func TestPrimary_NoMetaTags(t *testing.T) {
	doc := mustParse(t, `<html><head><title>Login • Instagram</title></head><body>
		<form><input name="username"></form></body></html>`, "https://www.instagram.com/accounts/login/")

	res := Primary(doc, "https://www.instagram.com/nasa/", DefaultTitlePlaceholder)

	assert.Equal(t, DefaultTitlePlaceholder, res.Title)
	assert.Equal(t, "", res.Image)
	assert.True(t, res.Blocked)
	assert.Equal(t, "https://www.instagram.com/accounts/login/", res.URL)
}

func TestPrimary_ImageWithoutTitleIsNotBlocked(t *testing.T) {
	doc := mustParse(t, `<html><head>
		<meta property="og:image" content="/static/cover.jpg">
	</head></html>`, "https://example.com/post/1")

	res := Primary(doc, "https://example.com/post/1", "Untitled")

	assert.Equal(t, "Untitled", res.Title)
	assert.Equal(t, "https://example.com/static/cover.jpg", res.Image)
	assert.False(t, res.Blocked)
}

func TestPrimary_EmptyContentCountsAsAbsent(t *testing.T) {
	doc := mustParse(t, `<html><head>
		<meta property="og:title" content="   ">
		<meta property="og:image" content="">
	</head></html>`, "https://example.com")

	res := Primary(doc, "https://example.com", "")

	assert.Equal(t, DefaultTitlePlaceholder, res.Title)
	assert.True(t, res.Blocked)
}

func TestPrimary_FirstTagWins(t *testing.T) {
	doc := mustParse(t, `<html><head>
		<meta property="og:title" content="First">
		<meta property="og:title" content="Second">
		<meta property="og:image" content="https://cdn.example.com/a.jpg">
		<meta property="og:image" content="https://cdn.example.com/b.jpg">
	</head></html>`, "https://example.com")

	res := Primary(doc, "https://example.com", "")

	assert.Equal(t, "First", res.Title)
	assert.Equal(t, "https://cdn.example.com/a.jpg", res.Image)
}

func TestPrimary_IgnoresStructuredImageAliases(t *testing.T) {
	tests := []struct {
		name        string
		head        string
		wantImage   string
		wantBlocked bool
	}{
		{
			name:        "alias only",
			head:        `<meta property="og:image:url" content="https://cdn.example.com/alias.jpg">`,
			wantImage:   "",
			wantBlocked: true,
		},
		{
			name: "alias before og:image",
			head: `<meta property="og:image:url" content="https://cdn.example.com/alias.jpg">
				<meta property="og:image:secure_url" content="https://cdn.example.com/secure.jpg">
				<meta property="og:image" content="https://cdn.example.com/real.jpg">`,
			wantImage:   "https://cdn.example.com/real.jpg",
			wantBlocked: false,
		},
		{
			name: "empty og:image with alias",
			head: `<meta property="og:image" content="">
				<meta property="og:image:url" content="https://cdn.example.com/alias.jpg">`,
			wantImage:   "",
			wantBlocked: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, "<html><head>"+tt.head+"</head></html>", "https://example.com/")
			res := Primary(doc, "https://example.com/", "")
			assert.Equal(t, tt.wantImage, res.Image)
			assert.Equal(t, tt.wantBlocked, res.Blocked)
		})
	}
}

func TestPrimary_CanonicalURL(t *testing.T) {
	tests := []struct {
		name      string
		head      string
		pageURL   string
		requested string
		want      string
	}{
		{
			name:      "og:url wins",
			head:      `<meta property="og:url" content="https://www.instagram.com/nasa/"><link rel="canonical" href="https://other.example/">`,
			pageURL:   "https://www.instagram.com/nasa/?hl=en",
			requested: "https://instagram.com/nasa",
			want:      "https://www.instagram.com/nasa/",
		},
		{
			name:      "link canonical when og:url missing",
			head:      `<link rel="canonical" href="/p/abc/">`,
			pageURL:   "https://www.instagram.com/p/abc/?igsh=xyz",
			requested: "https://www.instagram.com/p/abc/?igsh=xyz",
			want:      "https://www.instagram.com/p/abc/",
		},
		{
			name:      "redirected location",
			head:      ``,
			pageURL:   "https://m.example.com/home",
			requested: "https://example.com",
			want:      "https://m.example.com/home",
		},
		{
			name:      "requested spelling kept when only a slash differs",
			head:      ``,
			pageURL:   "https://example.com/",
			requested: "https://example.com",
			want:      "https://example.com",
		},
		{
			name:      "requested when location unknown",
			head:      ``,
			pageURL:   "",
			requested: "https://example.com/x",
			want:      "https://example.com/x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, "<html><head>"+tt.head+"</head></html>", tt.pageURL)
			res := Primary(doc, tt.requested, "")
			assert.Equal(t, tt.want, res.URL)
		})
	}
}

func TestParseCounts(t *testing.T) {
	c := ParseCounts("1.2K Followers, 340 Following, 58 Posts - See Instagram photos and videos from NASA (@nasa)")
	assert.Equal(t, Counts{Followers: "1.2K", Following: "340", Posts: "58"}, c)
}

func TestParseCounts_Variants(t *testing.T) {
	tests := []struct {
		desc string
		want Counts
	}{
		{"97M Followers, 77 Following, 4,321 Posts", Counts{"97M", "77", "4,321"}},
		{"3.5m Followers", Counts{Followers: "3.5m"}},
		{"12 followers and 3 posts", Counts{}},
		{"Followers: 100", Counts{}},
		{"10K Followers, 20K Followers", Counts{Followers: "10K"}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCounts(tt.desc))
		})
	}
}

func TestParseCounts_NoKeywords(t *testing.T) {
	c := ParseCounts("A collection of photos from our trip to the coast.")
	assert.Equal(t, "", c.Followers)
	assert.Equal(t, "", c.Following)
	assert.Equal(t, "", c.Posts)
}

var testRules = HarvestRules{
	CDNHosts:        []string{"cdninstagram.com", "fbcdn.net"},
	ExcludePatterns: []string{"profile_pic", "s150x150"},
}

func TestHarvestImages_FiltersByHostAndExclusion(t *testing.T) {
	doc := mustParse(t, `<html><body>
		<img src="https://scontent-lax3-1.cdninstagram.com/v/t51.29350-15/111_n.jpg">
		<img src="https://scontent.cdninstagram.com/v/t51.2885-19/s150x150/profile_pic.jpg">
		<img src="https://static.example.com/logo.png">
		<img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" data-src="https://scontent.xx.fbcdn.net/v/222_n.jpg">
		<img data-src="https://scontent.cdninstagram.com/v/333_n.jpg?stp=s150x150">
		<img alt="no source">
	</body></html>`, "https://www.instagram.com/nasa/")

	images := doc.HarvestImages(testRules)

	assert.Equal(t, []string{
		"https://scontent-lax3-1.cdninstagram.com/v/t51.29350-15/111_n.jpg",
		"https://scontent.xx.fbcdn.net/v/222_n.jpg",
	}, images)
	for _, img := range images {
		assert.True(t, testRules.Accepts(img))
	}
}

func TestHarvestImages_Cap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, `<img src="https://scontent.cdninstagram.com/v/%d_n.jpg">`, i)
	}
	b.WriteString("</body></html>")
	doc := mustParse(t, b.String(), "https://www.instagram.com/nasa/")

	images := doc.HarvestImages(testRules)
	require.Len(t, images, MaxContentItems)
	assert.Equal(t, "https://scontent.cdninstagram.com/v/0_n.jpg", images[0])
	assert.Equal(t, "https://scontent.cdninstagram.com/v/9_n.jpg", images[9])

	small := testRules
	small.Max = 3
	assert.Len(t, doc.HarvestImages(small), 3)

	large := testRules
	large.Max = 50
	assert.Len(t, doc.HarvestImages(large), MaxContentItems)
}

func TestHarvestImages_ResolvesRelativeSources(t *testing.T) {
	doc := mustParse(t, `<html><body>
		<img src="//scontent.cdninstagram.com/v/rel_n.jpg">
	</body></html>`, "https://www.instagram.com/nasa/")

	assert.Equal(t, []string{"https://scontent.cdninstagram.com/v/rel_n.jpg"}, doc.HarvestImages(testRules))
}

func TestHarvestRules_Accepts(t *testing.T) {
	assert.True(t, testRules.Accepts("https://SCONTENT.CDNINSTAGRAM.COM/v/a.jpg"))
	assert.False(t, testRules.Accepts("https://example.com/cdninstagram.com/a.jpg"))
	assert.False(t, testRules.Accepts("https://scontent.cdninstagram.com/v/profile_pic/a.jpg"))
	assert.False(t, testRules.Accepts("ftp://scontent.cdninstagram.com/a.jpg"))
	assert.False(t, HarvestRules{}.Accepts("https://scontent.cdninstagram.com/a.jpg"))
}

func TestEnrich(t *testing.T) {
	doc := mustParse(t, `<html><head>
		<meta property="og:title" content="NASA (@nasa)">
		<meta property="og:description" content="1.2K Followers, 340 Following, 58 Posts - See Instagram photos">
	</head></html>`, "https://www.instagram.com/nasa/")

	res := Primary(doc, "https://www.instagram.com/nasa/", "")
	Enrich(&res)

	assert.Equal(t, "1.2K", res.Followers)
	assert.Equal(t, "340", res.Following)
	assert.Equal(t, "58", res.PostsCount)
}
