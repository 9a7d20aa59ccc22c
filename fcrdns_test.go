package autofilter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsWhitelistedGooglebot(t *testing.T) {
	require.True(t, IsWhitelisted("crawl-66-249-66-1.googlebot.com."))
	require.True(t, IsWhitelisted("crawl-66-249-66-1.googlebot.com")) // no trailing dot
}

func TestIsWhitelistedYandex(t *testing.T) {
	require.True(t, IsWhitelisted("spider.yandex.ru."))
}

func TestIsWhitelistedRejectsLookalike(t *testing.T) {
	require.False(t, IsWhitelisted("evil-googlebot.com.attacker.net."))
	require.False(t, IsWhitelisted("notgooglebot.com."))
}

func TestNewFCrDNSVerifierDefaults(t *testing.T) {
	v := NewFCrDNSVerifier("", 0)
	require.Equal(t, defaultResolver, v.Resolver)
	require.Equal(t, defaultQueryTimeout, v.Timeout)
}

func TestVerifyRejectsInvalidIP(t *testing.T) {
	v := NewFCrDNSVerifier("127.0.0.1:1", 0)
	_, err := v.Verify("not-an-ip")
	require.Error(t, err)
}
