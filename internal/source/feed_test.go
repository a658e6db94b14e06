package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Energy Blog</title>
  <item>
    <title>Renewable Energy</title>
    <link>https://blog.example/renewable</link>
    <description><![CDATA[<p>Renewable energy comes from <b>solar</b> and wind.</p><script>track()</script>]]></description>
  </item>
  <item>
    <title></title>
    <guid>urn:item:2</guid>
    <description>Plain body</description>
  </item>
  <item>
    <title>No key</title>
    <description>dropped</description>
  </item>
</channel>
</rss>`

func TestParseFeed(t *testing.T) {
	docs, err := ParseFeed(rssBody)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "https://blog.example/renewable", docs[0].DocumentKey)
	assert.Equal(t, "Renewable Energy", docs[0].Title)
	assert.Equal(t, "Renewable energy comes from solar and wind.", docs[0].Text)

	assert.Equal(t, "urn:item:2", docs[1].DocumentKey)
	assert.Equal(t, "urn:item:2", docs[1].Title)
	assert.Equal(t, "Plain body", docs[1].Text)
}

func TestParseFeed_Malformed(t *testing.T) {
	_, err := ParseFeed("not a feed")
	assert.Error(t, err)
}

func TestFeedSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	docs, err := NewFeedSource([]string{srv.URL + "/feed.xml"}, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = NewFeedSource([]string{srv.URL + "/feed.xml", srv.URL + "/missing"}, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTMLToText(t *testing.T) {
	in := "<div><h1>Title</h1><p>First   line\nstill first.</p><style>p{}</style><p>Second &amp; last</p></div>"
	assert.Equal(t, "Title\n\nFirst line still first.\n\nSecond & last", HTMLToText(in))
	assert.Equal(t, "", HTMLToText("<br/>"))
}
