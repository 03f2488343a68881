package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_SectionsAndOversizedParagraph(t *testing.T) {
	long := strings.Repeat("a", 3000)
	content := "<h2>Intro</h2><p>short text</p><h2>Details</h2><p>" + long + "</p>"

	frags := New().Split(content)

	require.Len(t, frags, 2)
	assert.Equal(t, "Intro", frags[0].Subtitle)
	assert.Equal(t, "short text", frags[0].Content)
	assert.Equal(t, "Details", frags[1].Subtitle)
	assert.Equal(t, long, frags[1].Content)
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	for _, in := range []string{"", "   ", "\n\r\n", "<p> </p>", "<script>alert(1)</script>"} {
		assert.Empty(t, s.Split(in), "input %q", in)
	}
}

func TestSplit_HeadingBoundaries(t *testing.T) {
	content := "<p>lead</p><h2>A</h2><p>one</p><h2>B</h2><p>two</p>"
	frags := New().Split(content)

	var subtitles []string
	for _, f := range frags {
		subtitles = append(subtitles, f.Subtitle)
	}
	assert.Equal(t, []string{"", "A", "B"}, subtitles)
	assert.Equal(t, "lead", frags[0].Content)
	assert.Equal(t, "two", frags[2].Content)
}

func TestSplit_HeadingWithoutBody(t *testing.T) {
	frags := New().Split("<h2>A</h2><h2>B</h2><p>text</p>")
	require.Len(t, frags, 2)
	assert.Equal(t, "A", frags[0].Subtitle)
	assert.Equal(t, "A", frags[0].Content)
	assert.Equal(t, "B", frags[1].Subtitle)
	assert.Equal(t, "text", frags[1].Content)

	frags = New().Split("<p>text</p><h2>Tail</h2>")
	require.Len(t, frags, 2)
	assert.Equal(t, "Tail", frags[1].Content)
}

func TestSplit_OtherHeadingsAreContent(t *testing.T) {
	frags := New().Split("<h2>A</h2><h3>Sub</h3><p>body</p>")
	require.Len(t, frags, 1)
	assert.Equal(t, "Sub\n\nbody", frags[0].Content)

	frags = New(WithHeadingLevel(3)).Split("<h2>A</h2><h3>Sub</h3><p>body</p>")
	require.Len(t, frags, 2)
	assert.Equal(t, "Sub", frags[1].Subtitle)
	assert.Equal(t, "body", frags[1].Content)
}

func TestSplit_SizeInvariant(t *testing.T) {
	var b strings.Builder
	b.WriteString("<h2>Start</h2>")
	for i := 0; i < 200; i++ {
		b.WriteString("<p>")
		b.WriteString(strings.Repeat("word ", 1+i%37))
		b.WriteString("</p>")
		if i%50 == 0 {
			b.WriteString("<h2>Section</h2>")
		}
	}
	const limit = 300
	frags := New(WithLimit(limit)).Split(b.String())
	require.NotEmpty(t, frags)
	for i, f := range frags {
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Content), limit, "fragment %d", i)
	}
}

func TestSplit_SingleOversizedUnitStandsAlone(t *testing.T) {
	big := strings.Repeat("b", 50)
	frags := New(WithLimit(20)).Split("<p>x</p><p>" + big + "</p><p>y</p>")
	require.Len(t, frags, 3)
	assert.Equal(t, "x", frags[0].Content)
	assert.Equal(t, big, frags[1].Content)
	assert.Equal(t, "y", frags[2].Content)
	assert.Empty(t, frags[2].Subtitle)
}

func TestSplit_SubtitleOnlyOnFirstFragmentOfSection(t *testing.T) {
	p := "<p>" + strings.Repeat("z", 15) + "</p>"
	frags := New(WithLimit(20)).Split("<h2>Head</h2>" + p + p + p)
	require.Len(t, frags, 3)
	assert.Equal(t, "Head", frags[0].Subtitle)
	assert.Empty(t, frags[1].Subtitle)
	assert.Empty(t, frags[2].Subtitle)
}

func TestSplit_Lists(t *testing.T) {
	frags := New().Split("<ul><li>apples</li>\n<li> pears </li></ul><ol><li>one</li></ol>")
	require.Len(t, frags, 1)
	assert.Equal(t, " - apples\n - pears\n\n - one", frags[0].Content)
}

func TestSplit_BareTextAndInlineRuns(t *testing.T) {
	frags := New().Split("hello <b>bold</b>\nworld<p>para</p>tail")
	require.Len(t, frags, 1)
	assert.Equal(t, "hello bold world\n\npara\n\ntail", frags[0].Content)
}

func TestSplit_StripsScriptsAndComments(t *testing.T) {
	frags := New().Split(`<p>keep</p><script>var x = "<p>no</p>";</script><!-- hidden --><style>p{}</style><p>also</p>`)
	require.Len(t, frags, 1)
	assert.Equal(t, "keep\n\nalso", frags[0].Content)
}

func TestSplit_DescendsIntoContainers(t *testing.T) {
	frags := New().Split("<div><section><h2>A</h2><p>one</p></section><div>plain</div></div>")
	require.Len(t, frags, 1)
	assert.Equal(t, "A", frags[0].Subtitle)
	assert.Equal(t, "one\n\nplain", frags[0].Content)
}

func TestSplit_MalformedMarkup(t *testing.T) {
	frags := New().Split("<h2>Broken<p>unclosed <b>bold<div>more</h2></p>")
	require.NotEmpty(t, frags)
	var all []string
	for _, f := range frags {
		all = append(all, f.Subtitle, f.Content)
	}
	joined := strings.Join(all, " ")
	assert.Contains(t, joined, "Broken")
	assert.Contains(t, joined, "more")
}

func TestSplit_Deterministic(t *testing.T) {
	content := "<h2>A</h2><p>" + strings.Repeat("x ", 900) + "</p><p>" + strings.Repeat("y ", 900) + "</p>"
	s := New()
	assert.Equal(t, s.Split(content), s.Split(content))
}

func TestSplit_ASCIIOnly(t *testing.T) {
	frags := New(WithASCIIOnly(true)).Split("<p>Crème brûlée – Straße “quoted” 日本</p>")
	require.Len(t, frags, 1)
	assert.Equal(t, `Creme brulee - Strasse "quoted" ??`, frags[0].Content)

	frags = New().Split("<p>Crème</p>")
	assert.Equal(t, "Crème", frags[0].Content)
}

func TestParseHeadingLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"h2", 2, false},
		{" H4 ", 4, false},
		{"h7", 0, true},
		{"p", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHeadingLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
