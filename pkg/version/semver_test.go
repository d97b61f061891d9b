package version

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// withVersion sets Version for one test and clears the parse cache.
func withVersion(t *testing.T, v string) {
	t.Helper()
	old := Version
	Version = v
	parseOnce = sync.Once{}
	parsed = nil
	t.Cleanup(func() {
		Version = old
		parseOnce = sync.Once{}
		parsed = nil
	})
}

func TestParsed(t *testing.T) {
	withVersion(t, "v1.4.2-rc.1+20260301")
	v := Parsed()
	if assert.NotNil(t, v) {
		assert.Equal(t, uint64(1), v.Major())
		assert.Equal(t, uint64(4), v.Minor())
		assert.Equal(t, "rc.1", v.Prerelease())
		assert.Equal(t, "20260301", v.Metadata())
	}

	// Cached until reset
	Version = "v2.0.0"
	assert.Equal(t, uint64(1), Parsed().Major())
}

func TestChannel(t *testing.T) {
	tests := []struct {
		version    string
		channel    string
		prerelease bool
		dev        bool
	}{
		{"v1.0.0", ChannelStable, false, false},
		{"1.2.3", ChannelStable, false, false},
		{"v1.0.0+build123", ChannelStable, false, false},
		{"v1.0.0-beta.1", ChannelPrerelease, true, false},
		{"v1.0.0-rc.2+build456", ChannelPrerelease, true, false},
		{"dev", ChannelDev, false, true},
		{"", ChannelDev, false, true},
		{"v1.0.0.0", ChannelDev, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			withVersion(t, tt.version)
			assert.Equal(t, tt.channel, Channel())
			assert.Equal(t, tt.prerelease, IsPrerelease())
			assert.Equal(t, tt.dev, IsDevBuild())
		})
	}
}

func TestInfo_NamesChannel(t *testing.T) {
	withVersion(t, "v0.9.0-beta.2")
	assert.Contains(t, Info(), "farrierly v0.9.0-beta.2 [prerelease]")

	withVersion(t, "v1.0.0")
	assert.NotContains(t, Info(), "[")
}
