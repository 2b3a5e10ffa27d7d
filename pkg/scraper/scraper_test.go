package scraper

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexPage = `<html><body>
<a href="2024-March.txt.gz">[ Gzip'd Text ]</a>
<a href="2024-February.txt">[ Text ]</a>
<a href="2023-December.txt.gz">[ Gzip'd Text ]</a>
<a href="2024-Smarch.txt">[ bogus month ]</a>
<a href="thread.html">[ Thread ]</a>
<a href="2024-March/date.html">[ Date view ]</a>
</body></html>`

func TestDiscoverMonths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage))
	}))
	defer server.Close()

	s := New(server.URL, 5*time.Second)
	months, err := s.DiscoverMonths(context.Background())
	require.NoError(t, err)

	// Bogus month and non-archive anchors are dropped; rest sorted newest first
	require.Len(t, months, 3)
	assert.Equal(t, "2024-03", months[0].Label)
	assert.Equal(t, "2024-02", months[1].Label)
	assert.Equal(t, "2023-12", months[2].Label)

	assert.Equal(t, server.URL+"/2024-March.txt.gz", months[0].URL)
	assert.Equal(t, server.URL+"/2024-February.txt", months[1].URL)
}

func TestDiscoverMonthsIndexError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := New(server.URL, 5*time.Second)
	_, err := s.DiscoverMonths(context.Background())
	assert.Error(t, err)
}

func TestFetchMonthPlainText(t *testing.T) {
	content := "From alice@example.com Mon Jan 2 2023\nSubject: hi\n\nbody\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer server.Close()

	s := New(server.URL, 5*time.Second)
	got := s.FetchMonth(context.Background(), server.URL+"/2023-January.txt")
	assert.Equal(t, content, got)
}

func TestFetchMonthGzip(t *testing.T) {
	content := "From alice@example.com Mon Jan 2 2023\nSubject: hi\n\nbody\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz := gzip.NewWriter(w)
		gz.Write([]byte(content))
		gz.Close()
	}))
	defer server.Close()

	s := New(server.URL, 5*time.Second)
	got := s.FetchMonth(context.Background(), server.URL+"/2023-January.txt.gz")
	assert.Equal(t, content, got)
}

func TestFetchMonthFailsSoft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := New(server.URL, 5*time.Second)

	// Missing file yields an empty result, not an error
	assert.Equal(t, "", s.FetchMonth(context.Background(), server.URL+"/2023-January.txt"))

	// Corrupt gzip also fails soft
	badGz := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not gzip"))
	}))
	defer badGz.Close()
	assert.Equal(t, "", s.FetchMonth(context.Background(), badGz.URL+"/2023-January.txt.gz"))
}
