package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryIsBlank(t *testing.T) {
	assert.True(t, Entry{}.IsBlank())
	assert.True(t, Entry{Content: " \n\t "}.IsBlank())
	assert.False(t, Entry{Content: " x "}.IsBlank())
}

func TestPreview(t *testing.T) {
	content := "\n  first  \n\nsecond\nthird\nfourth\n"
	assert.Equal(t, "first\nsecond\nthird", Preview(content, PreviewLines))
	assert.Equal(t, "first", Preview(content, 1))
	assert.Equal(t, "", Preview("   \n\n", PreviewLines))
	assert.Equal(t, "", Preview(content, 0))
}

func TestDurabilityString(t *testing.T) {
	assert.Equal(t, "atomic", DurabilityAtomic.String())
	assert.Equal(t, "degraded", DurabilityDegraded.String())
	assert.Equal(t, "removed", DurabilityRemoved.String())
}
