package model

import (
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  float64
		valid bool
	}{
		{"number", `42.5`, 42.5, true},
		{"negative", `-12`, -12, true},
		{"string", `"3.25"`, 3.25, true},
		{"padded string", `" 7 "`, 7, true},
		{"null", `null`, 0, false},
		{"garbage string", `"n/a"`, 0, false},
		{"bool", `true`, 0, false},
		{"nan string", `"NaN"`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			require.NoError(t, n.UnmarshalJSON([]byte(tt.in)))
			assert.Equal(t, tt.valid, n.Valid)
			assert.Equal(t, tt.want, n.Float())
		})
	}
}

func TestNumber_Marshal(t *testing.T) {
	b, err := gojson.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Num(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(b))
}

func TestCity_Slim(t *testing.T) {
	c := City{
		ID:          7,
		City:        "Recife",
		CountryCode: "BR",
		Latitude:    Num(-8.05),
		Longitude:   Num(-34.9),
	}
	s := c.Slim()
	assert.Equal(t, "Recife", s.Name)
	assert.Equal(t, "BR", s.Country)
	assert.False(t, s.Population.Valid)

	b, err := gojson.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"Recife","country":"BR","latitude":-8.05,"longitude":-34.9,"population":null}`, string(b))

	back := s.City()
	assert.Equal(t, "Recife", back.DisplayName())
	assert.Equal(t, "BR", back.DisplayCountry())
}

func TestDecode(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		cities, err := Decode([]byte(`[{"id":1,"name":"A","latitude":"1.5","longitude":2,"population":100}]`))
		require.NoError(t, err)
		require.Len(t, cities, 1)
		assert.Equal(t, 1.5, cities[0].Latitude.Float())
		assert.Equal(t, 100.0, cities[0].Population.Float())
	})

	t.Run("envelope", func(t *testing.T) {
		cities, err := Decode([]byte(`{"data":[{"id":1},{"id":2,"population":null}]}`))
		require.NoError(t, err)
		assert.Len(t, cities, 2)
		assert.False(t, cities[1].Population.Valid)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Decode([]byte(`"nope"`))
		assert.ErrorIs(t, err, ErrUnsupportedDocument)

		_, err = Decode([]byte(`{"items":[]}`))
		assert.ErrorIs(t, err, ErrUnsupportedDocument)

		_, err = Decode(nil)
		assert.ErrorIs(t, err, ErrUnsupportedDocument)
	})
}

func TestUniqueByID(t *testing.T) {
	in := []City{{ID: 1, Name: "a"}, {ID: 2}, {ID: 1, Name: "dup"}, {ID: 3}}
	out := UniqueByID(in)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Name)
	assert.Equal(t, []int64{1, 2, 3}, []int64{out[0].ID, out[1].ID, out[2].ID})
}
