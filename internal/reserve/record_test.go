package reserve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xcmreserve/internal/location"
)

func TestEncodeRecords(t *testing.T) {
	data, err := EncodeRecords([]Record{{Reserve: location.New(1, location.Parachain{ID: 2000}), Teleportable: true}})
	require.NoError(t, err)
	assert.Equal(t,
		`[{"reserve":{"interior":[{"parachain":2000}],"parents":1},"teleportable":true}]`,
		string(data))

	empty, err := EncodeRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(empty))
}

func TestDecodeRecords(t *testing.T) {
	in := []Record{
		{Reserve: kusamaAssetHub},
		{Reserve: location.New(1, location.Parachain{ID: 2000}), Teleportable: true},
	}
	data, err := EncodeRecords(in)
	require.NoError(t, err)

	out, err := DecodeRecords(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, in[0].Equal(out[0]))
	assert.True(t, in[1].Equal(out[1]))

	empty, err := DecodeRecords([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDecodeRecordsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not array", `{}`, "expected array"},
		{"missing teleportable", `[{"reserve":{"parents":0,"interior":[]},"x":1}]`, "teleportable"},
		{"extra field", `[{"reserve":{"parents":0,"interior":[]},"teleportable":true,"x":1}]`, "3 fields"},
		{"bad reserve", `[{"reserve":{"parents":0},"teleportable":true}]`, "interior"},
		{"garbage", `[`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecords([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRecordsEqual(t *testing.T) {
	a := []Record{{Reserve: kusamaAssetHub}}
	b := []Record{{Reserve: location.New(2, kusama, location.Parachain{ID: 1000})}}
	assert.True(t, RecordsEqual(a, b))
	assert.True(t, RecordsEqual(nil, []Record{}))
	assert.False(t, RecordsEqual(a, []Record{{Reserve: kusamaAssetHub, Teleportable: true}}))
	assert.False(t, RecordsEqual(a, append(a, a[0])))
}

func TestRecordsHash(t *testing.T) {
	h1, err := RecordsHash([]Record{{Reserve: kusamaAssetHub}})
	require.NoError(t, err)
	h2, err := RecordsHash([]Record{})
	require.NoError(t, err)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2)
}

func TestRecordString(t *testing.T) {
	r := Record{Reserve: location.New(1, location.Parachain{ID: 2000}), Teleportable: true}
	assert.Equal(t, "{reserve: (1, [Parachain(2000)]), teleportable: true}", r.String())
}
