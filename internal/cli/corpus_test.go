package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitUpload(t *testing.T) {
	t.Run("cases one per line", func(t *testing.T) {
		contents, metas := splitUpload("vocs.txt", "login broken\n\n  refund late \n", false)
		assert.Equal(t, []string{"login broken", "refund late"}, contents)
		require.Len(t, metas, 2)
		assert.Equal(t, map[string]any{"source": "vocs.txt"}, metas[1])
	})

	t.Run("plain guide by paragraph", func(t *testing.T) {
		first := "Refunds are issued to the original payment method within five business days of approval."
		second := "Outages affecting checkout are escalated to the on-call engineer and the status page is updated."
		contents, metas := splitUpload("handbook.txt", first+"\n\n"+second, true)
		require.Len(t, contents, 1)
		assert.Equal(t, first+"\n\n"+second, contents[0])
		assert.Equal(t, map[string]any{"source": "handbook.txt", "title": "handbook.txt"}, metas[0])
	})

	t.Run("markdown guide by section", func(t *testing.T) {
		text := "# Refunds\n" +
			"Refunds are issued to the original payment method within five business days of approval by billing. Partial refunds need a team lead.\n\n" +
			"# Outages\n" +
			"Outages affecting checkout are escalated to the on-call engineer and the status page is updated within fifteen minutes of detection."
		contents, metas := splitUpload("support.md", text, true)
		require.Len(t, contents, 2)
		assert.Equal(t, "support > Refunds", metas[0]["title"])
		assert.Equal(t, "support > Outages", metas[1]["title"])
		assert.Equal(t, "support.md", metas[1]["source"])
	})

	t.Run("empty file", func(t *testing.T) {
		contents, _ := splitUpload("empty.txt", "\n\n", true)
		assert.Empty(t, contents)
	})
}
