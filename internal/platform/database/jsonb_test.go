package database

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONBValueAndScan(t *testing.T) {
	in := NewJSONB([]string{"a.png", "b.png"})
	v, err := in.Value()
	require.NoError(t, err)
	require.Equal(t, `["a.png","b.png"]`, v)

	var out JSONB[[]string]
	require.NoError(t, out.Scan([]byte(`["a.png","b.png"]`)))
	require.Equal(t, in.Data, out.Data)
}

func TestJSONBNilIsNull(t *testing.T) {
	var p JSONB[*struct{ Name string }]
	v, err := p.Value()
	require.NoError(t, err)
	require.Nil(t, v)

	p.Data = &struct{ Name string }{"x"}
	require.NoError(t, p.Scan(nil))
	require.Nil(t, p.Data)
}

func TestJSONBEmbedsTransparently(t *testing.T) {
	type row struct {
		Images JSONB[[]string] `json:"images"`
	}
	b, err := json.Marshal(row{Images: NewJSONB([]string{"x"})})
	require.NoError(t, err)
	require.JSONEq(t, `{"images":["x"]}`, string(b))
}
