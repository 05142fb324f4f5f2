package notes_test

import (
	"github.com/myrjola/chronicler/internal/notes"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "plain", html: "  Torik rests.  ", want: "Torik rests."},
		{
			name: "paragraphs",
			html: "<p>Torik found his brother <strong>Betar</strong>.</p><p>The cage was locked.</p>",
			want: "Torik found his brother Betar.\nThe cage was locked.",
		},
		{name: "line breaks", html: "<p>One<br>Two<br/>Three</p>", want: "One\nTwo\nThree"},
		{name: "entities", html: "<p>Salt &amp; iron</p>", want: "Salt & iron"},
		{
			name: "lists and headings",
			html: "<h2>Loot</h2><ul><li>Key</li><li>Map</li></ul>",
			want: "Loot\nKey\nMap",
		},
		{name: "scripts dropped", html: "<p>Hi</p><script>alert(1)</script>", want: "Hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := notes.PlainText(tt.html)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestContainsExcerpt(t *testing.T) {
	text := "Torik found his brother Betar in a cage at the black market.\n“Stay back,” Betar whispered."
	tests := []struct {
		name    string
		excerpt string
		want    bool
	}{
		{name: "verbatim", excerpt: "Torik found his brother Betar in a cage", want: true},
		{name: "case and whitespace", excerpt: "torik  FOUND his\nbrother", want: true},
		{name: "wrapped in quotes", excerpt: `"in a cage at the black market."`, want: true},
		{name: "typographic quotes", excerpt: `"Stay back," Betar whispered`, want: true},
		{name: "ellipsis in order", excerpt: "Torik found … black market", want: true},
		{name: "ellipsis out of order", excerpt: "black market...Torik found", want: false},
		{name: "paraphrase", excerpt: "Torik rescued Betar", want: false},
		{name: "empty", excerpt: " ... ", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, notes.ContainsExcerpt(text, tt.excerpt))
		})
	}
}

func TestTokenCounter(t *testing.T) {
	counter, err := notes.NewTokenCounter()
	require.NoError(t, err)
	empty, err := counter.Count("")
	require.NoError(t, err)
	require.Zero(t, empty)
	count, err := counter.Count("Torik found his brother Betar in a cage.")
	require.NoError(t, err)
	require.Positive(t, count)
}
