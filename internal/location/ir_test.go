package location

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xcmreserve/internal/ir"
)

func TestToIRCanonicalBytes(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want string
	}{
		{"here", Here(), `{"interior":[],"parents":0}`},
		{"sibling", New(1, Parachain{ID: 2000}), `{"interior":[{"parachain":2000}],"parents":1}`},
		{
			"kusama asset hub",
			New(2, GlobalConsensus{Network: Kusama{}}, Parachain{ID: 1000}),
			`{"interior":[{"global_consensus":"kusama"},{"parachain":1000}],"parents":2}`,
		},
		{
			"ethereum root",
			ethereumRoot,
			`{"interior":[{"global_consensus":{"ethereum":{"chain_id":1}}}],"parents":2}`,
		},
		{
			"account key without network",
			New(0, AccountKey20{Key: [20]byte{0xff}}),
			`{"interior":[{"account_key20":{"key":"0xff00000000000000000000000000000000000000"}}],"parents":0}`,
		},
		{
			"large general index",
			New(0, GeneralIndex{Index: 1<<64 - 1}),
			`{"interior":[{"general_index":"18446744073709551615"}],"parents":0}`,
		},
		{"only child", New(0, OnlyChild{}), `{"interior":["only_child"],"parents":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ir.MarshalCanonical(tt.loc.ToIR())
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestIRRoundTrip(t *testing.T) {
	var hash [32]byte
	hash[0], hash[31] = 0xaa, 0xbb
	gk := GeneralKey{Length: 2, Data: [32]byte{1, 2, 3}}

	locs := []Location{
		Here(),
		New(1, Parachain{ID: 2000}, PalletInstance{Index: 50}, GeneralIndex{Index: 1984}),
		New(0, AccountID32{Network: Kusama{}, ID: hash}, AccountIndex64{Index: 1 << 63}),
		New(2, GlobalConsensus{Network: ByFork{BlockNumber: 9, BlockHash: hash}}, gk),
		New(2, GlobalConsensus{Network: ByGenesis{Hash: hash}}, OnlyChild{}),
		New(2, GlobalConsensus{Network: PolkadotBulletin{}}),
	}

	for _, l := range locs {
		t.Run(l.String(), func(t *testing.T) {
			data, err := json.Marshal(l)
			require.NoError(t, err)

			var got Location
			require.NoError(t, json.Unmarshal(data, &got))
			assert.True(t, l.Equal(got), "got %s", got)
		})
	}
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON([]byte(`{
		"parents": 2,
		"interior": [{"global_consensus": "kusama"}, {"parachain": 1000}]
	}`))
	require.NoError(t, err)
	assert.True(t, got.Equal(New(2, GlobalConsensus{Network: Kusama{}}, Parachain{ID: 1000})))
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not object", `[]`, "expected object"},
		{"unknown field", `{"parents":0,"interior":[],"x":1}`, `unknown field "x"`},
		{"missing interior", `{"parents":0}`, `missing field "interior"`},
		{"parents range", `{"parents":256,"interior":[]}`, "out of range"},
		{"unknown junction", `{"parents":0,"interior":[{"plurality":{}}]}`, `unknown junction "plurality"`},
		{"unknown network", `{"parents":0,"interior":[{"global_consensus":"moonbeam"}]}`, "unknown network"},
		{"parachain range", `{"parents":1,"interior":[{"parachain":4294967296}]}`, "out of range"},
		{"negative", `{"parents":1,"interior":[{"parachain":-1}]}`, "negative"},
		{"two keys", `{"parents":1,"interior":[{"parachain":1,"pallet_instance":2}]}`, "exactly one key"},
		{"short key", `{"parents":0,"interior":[{"account_key20":{"key":"0x01"}}]}`, "expected 20 bytes"},
		{"no prefix", `{"parents":0,"interior":[{"account_key20":{"key":"01"}}]}`, "0x prefix"},
		{
			"too long",
			`{"parents":0,"interior":["only_child","only_child","only_child","only_child","only_child","only_child","only_child","only_child","only_child"]}`,
			"exceeds maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
