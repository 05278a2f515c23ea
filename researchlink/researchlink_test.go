package researchlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	var b Builder
	require.NoError(t, b.AddSource("lrclib", `https://lrclib.net/search/{{ join " " .Artist .Title | path }}`))
	require.NoError(t, b.AddSource("ddg", `https://duckduckgo.com/?q={{ join " " .Artist .Title "lyrics" | query }}`))
	require.NoError(t, b.AddSource("broken", `{{ .Year }}`))

	res, err := b.Build(Query{Title: "Hoppípolla", Artist: "Sigur Rós"})
	assert.ErrorContains(t, err, "broken")
	assert.Equal(t, []SearchResult{
		{Name: "lrclib", URL: "https://lrclib.net/search/Sigur%20R%C3%B3s%20Hopp%C3%ADpolla"},
		{Name: "ddg", URL: "https://duckduckgo.com/?q=Sigur+R%C3%B3s+Hopp%C3%ADpolla+lyrics"},
	}, res)

	var names []string
	for name := range b.IterSources() {
		names = append(names, name)
	}
	assert.Equal(t, []string{"lrclib", "ddg", "broken"}, names)
}

func TestAddSourceErrors(t *testing.T) {
	t.Parallel()

	var b Builder
	assert.Error(t, b.AddSource("", "x"))
	assert.Error(t, b.AddSource("bad", "{{ .Title "))

	var nilBuilder *Builder
	res, err := nilBuilder.Build(Query{})
	assert.NoError(t, err)
	assert.Empty(t, res)
}
