package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_DefaultAllowlist(t *testing.T) {
	c := NewChecker(nil)

	assert.True(t, c.Trusted("bringatrailer.com"))
	assert.True(t, c.Trusted("www.mecum.com"))
	assert.True(t, c.Trusted("RMSothebys.com"))
	assert.False(t, c.Trusted("randomclassifieds.example"))
	assert.False(t, c.Trusted(""))
}

func TestChecker_SubdomainsAreTrusted(t *testing.T) {
	c := NewChecker(nil)

	assert.True(t, c.Trusted("auctions.bonhams.com"))
	assert.True(t, c.Trusted("results.barrett-jackson.com."))
}

func TestChecker_SuffixWithoutDotBoundaryIsNotTrusted(t *testing.T) {
	c := NewChecker(nil)

	assert.False(t, c.Trusted("notbringatrailer.com"))
	assert.False(t, c.Trusted("mecum.com.evil.example"))
}

func TestChecker_CustomAllowlistReplacesDefault(t *testing.T) {
	c := NewChecker([]string{"example-auctions.test"})

	assert.True(t, c.Trusted("example-auctions.test"))
	assert.False(t, c.Trusted("bringatrailer.com"))
}
