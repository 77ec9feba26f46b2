package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPreview_Single(t *testing.T) {
	var pr previewResponse
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Example","description":"","image":"","url":"https://example.com","blocked":false}`), &pr))

	out := formatPreview(pr)

	assert.Contains(t, out, "Title: Example\n")
	assert.Contains(t, out, "URL: https://example.com\n")
	assert.NotContains(t, out, "Content images")
	assert.NotContains(t, out, "login wall")
}

func TestFormatPreview_Collection(t *testing.T) {
	var pr previewResponse
	require.NoError(t, json.Unmarshal([]byte(`{"items":[
		{"title":"NASA (@nasa)","url":"https://www.instagram.com/nasa/","blocked":false,"followers":"97M","following":"77","postsCount":"4,321"},
		{"image":"https://scontent.cdninstagram.com/v/1_n.jpg","type":"post"},
		{"image":"https://scontent.cdninstagram.com/v/2_n.jpg","type":"post"}
	]}`), &pr))

	out := formatPreview(pr)

	assert.Contains(t, out, "Title: NASA (@nasa)\n")
	assert.Contains(t, out, "Followers: 97M  Following: 77  Posts: 4,321\n")
	assert.Contains(t, out, "Content images (2):\n1. https://scontent.cdninstagram.com/v/1_n.jpg\n2. https://scontent.cdninstagram.com/v/2_n.jpg\n")
}

func TestFormatPreview_Blocked(t *testing.T) {
	var pr previewResponse
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"title":"No title","url":"https://www.instagram.com/nasa/","blocked":true}]}`), &pr))

	out := formatPreview(pr)

	assert.Contains(t, out, "login wall")
	assert.NotContains(t, out, "Content images")
}
