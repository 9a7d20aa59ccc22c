package autofilter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyStaticAsset(t *testing.T) {
	c := Classify(Record{URI: "/style.css", Status: "200", Method: "GET"})
	require.Equal(t, int64(1), c.Weight)
	require.Equal(t, "css", c.Ext)
}

func TestClassifyRedirect(t *testing.T) {
	c := Classify(Record{URI: "/old", Status: "301", Method: "GET"})
	require.Equal(t, int64(10), c.Weight)
}

func TestClassifyPost(t *testing.T) {
	c := Classify(Record{URI: "/login", Status: "200", Method: "POST"})
	require.Equal(t, int64(30), c.Weight)
}

func TestClassifyQueryString(t *testing.T) {
	c := Classify(Record{URI: "/search?q=x", Status: "200", Method: "GET"})
	require.Equal(t, int64(20), c.Weight)
	require.True(t, c.IsArgs)
	require.Equal(t, "/search", c.URI)
}

func TestClassifyDefault(t *testing.T) {
	c := Classify(Record{URI: "/page", Status: "200", Method: "GET"})
	require.Equal(t, int64(10), c.Weight)
}

func TestClassifyPrecedence(t *testing.T) {
	// Static asset weight wins even with a POST and a query string.
	c := Classify(Record{URI: "/img.png?v=2", Status: "200", Method: "POST"})
	require.Equal(t, int64(1), c.Weight)
}
