package autofilter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleLine() string {
	return "2024-01-01T00:00:05+00:00\tUS\t1.2.3.4\thttps\texample.com\tGET\t\"/index.html?x=1\"\t200\t512\t\"-\"\t\"Mozilla/5.0\""
}

func TestParseLine(t *testing.T) {
	r, err := ParseLine(sampleLine())
	require.NoError(t, err)
	require.Equal(t, "1.2.3.4", r.IP)
	require.Equal(t, "US", r.Country)
	require.Equal(t, "GET", r.Method)
	require.Equal(t, "/index.html?x=1", r.URI)
	require.Equal(t, "200", r.Status)
	require.Equal(t, "Mozilla/5.0", r.UserAgent)
}

func TestParseLineIgnoresExtraFields(t *testing.T) {
	r, err := ParseLine(sampleLine() + "\textra1\textra2")
	require.NoError(t, err)
	require.Equal(t, "1.2.3.4", r.IP)
}

func TestParseLineTooFewFields(t *testing.T) {
	_, err := ParseLine("not\tenough\tfields")
	require.Error(t, err)
}

func TestMinutePrefix(t *testing.T) {
	r := Record{Time: "2024-01-01T00:00:59+00:00"}
	require.Equal(t, "2024-01-01T00:00", r.MinutePrefix())
}
