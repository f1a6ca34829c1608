package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"id":1,"name":"Lisbon","country":"Portugal"},`), 200)

	for _, typ := range []Type{None, LZ4, Zstd} {
		t.Run(typ.String(), func(t *testing.T) {
			packed, err := Compress(typ, data)
			require.NoError(t, err)
			if typ != None {
				assert.Less(t, len(packed), len(data))
			}

			got, err := Decompress(typ, packed)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestParseAndSuffix(t *testing.T) {
	for _, typ := range []Type{None, LZ4, Zstd} {
		parsed, err := Parse(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
		assert.Equal(t, typ, FromPath("cities-10.json"+typ.Suffix()))
	}

	_, err := Parse("brotli")
	assert.Error(t, err)
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress(Zstd, []byte("not zstd"))
	assert.Error(t, err)
}
