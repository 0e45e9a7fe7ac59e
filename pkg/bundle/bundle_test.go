package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmix/playmix/pkg/model"
)

func TestRoundTrip(t *testing.T) {
	collection := &model.Collection{
		ID:   "local-id",
		Name: "Evening Mix",
		SubLists: []model.SubList{
			{ID: "PL123", Kind: model.KindPlaylist, Title: "Concerts", URL: "https://youtube.com/playlist?list=PL123"},
			{ID: "UC456", Kind: model.KindChannel, Title: "Some Channel", URL: "https://youtube.com/channel/UC456"},
		},
		Aggregate: true,
	}

	blob, err := Export(collection)
	require.NoError(t, err)

	imported, err := Import(blob)
	require.NoError(t, err)

	assert.Empty(t, imported.ID, "storage id never travels")
	assert.Equal(t, collection.Name, imported.Name)
	assert.Equal(t, collection.SubLists, imported.SubLists)
	assert.True(t, imported.Aggregate)
}

func TestImportTrimsWhitespace(t *testing.T) {
	blob, err := Export(&model.Collection{Name: "m"})
	require.NoError(t, err)

	imported, err := Import("\n  " + blob + "  \n")
	require.NoError(t, err)
	assert.Equal(t, "m", imported.Name)
}

func TestImportCornerCases(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "empty", blob: ""},
		{name: "no magic", blob: "something-else"},
		{name: "no version separator", blob: "playmix/1"},
		{name: "future version", blob: "playmix/2:AAAA"},
		{name: "bad base64", blob: "playmix/1:!!!"},
		{name: "not gzip", blob: "playmix/1:AAAA"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Import(tc.blob)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrMalformed)
		})
	}
}

func TestImportRequiresName(t *testing.T) {
	blob, err := Export(&model.Collection{})
	require.NoError(t, err)

	_, err = Import(blob)
	assert.ErrorIs(t, err, model.ErrMalformed)
}
