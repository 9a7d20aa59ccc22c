package autofilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReloadSignalerFirstNonEmptyMembershipSignals(t *testing.T) {
	s := NewReloadSignaler("/tmp/does-not-matter.pid", time.Minute)
	var signaled []string
	s.signalReload = func(pidfile string) error {
		signaled = append(signaled, pidfile)
		return nil
	}

	sent, err := s.MaybeSignal(time.Now(), []string{"1.2.3.4"})
	require.NoError(t, err)
	require.True(t, sent)
	require.Len(t, signaled, 1)
}

func TestReloadSignalerSkipsUnchangedMembership(t *testing.T) {
	s := NewReloadSignaler("/tmp/x.pid", time.Minute)
	s.signalReload = func(string) error { return nil }

	now := time.Now()
	sent, err := s.MaybeSignal(now, []string{"1.2.3.4"})
	require.NoError(t, err)
	require.True(t, sent)

	sent, err = s.MaybeSignal(now.Add(2*time.Minute), []string{"1.2.3.4"})
	require.NoError(t, err)
	require.False(t, sent, "membership unchanged, no reload expected")
}

func TestReloadSignalerRespectsMinInterval(t *testing.T) {
	s := NewReloadSignaler("/tmp/x.pid", time.Minute)
	s.signalReload = func(string) error { return nil }

	now := time.Now()
	sent, err := s.MaybeSignal(now, []string{"1.2.3.4"})
	require.NoError(t, err)
	require.True(t, sent)

	sent, err = s.MaybeSignal(now.Add(10*time.Second), []string{"5.6.7.8"})
	require.NoError(t, err)
	require.False(t, sent, "membership changed but budget not yet elapsed")

	sent, err = s.MaybeSignal(now.Add(90*time.Second), []string{"5.6.7.8"})
	require.NoError(t, err)
	require.True(t, sent, "budget elapsed and membership differs")
}

func TestReloadSignalerMembershipOrderIndependent(t *testing.T) {
	s := NewReloadSignaler("/tmp/x.pid", time.Minute)
	s.signalReload = func(string) error { return nil }

	now := time.Now()
	_, err := s.MaybeSignal(now, []string{"1.1.1.1", "2.2.2.2"})
	require.NoError(t, err)

	sent, err := s.MaybeSignal(now.Add(2*time.Minute), []string{"2.2.2.2", "1.1.1.1"})
	require.NoError(t, err)
	require.False(t, sent, "same members in different order is not a change")
}
