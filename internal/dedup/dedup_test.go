package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/camera-db/internal/model"
)

func cam(lat, lon float64, flags model.Flags, src string) model.Camera {
	return model.Camera{Lat: lat, Lon: lon, Flags: flags, Provenance: src}
}

func TestDedupeNearDuplicates(t *testing.T) {
	t.Parallel()

	in := []model.Camera{
		cam(34.05223, -118.24368, model.FlagRedLight, "overpass"),
		cam(34.05224, -118.24369, model.FlagRedLight, "poi_factory"),
	}

	out, st := Dedupe(in, Options{})
	require.Len(t, out, 1)
	assert.Equal(t, Key{Lat: 340522, Lon: -1182437}, KeyOf(in[0], Options{}))
	assert.Equal(t, KeyOf(in[0], Options{}), KeyOf(in[1], Options{}))
	assert.Equal(t, Stats{Input: 2, Kept: 1, Dropped: 1, BySource: map[string]int{"poi_factory": 1}}, st)
}

func TestDedupeFirstSeenWins(t *testing.T) {
	t.Parallel()

	first := cam(40.7128, -74.006, model.FlagSpeed, "overpass")
	richer := cam(40.71281, -74.00601, model.FlagSpeed, "poi_factory")
	richer.SpeedLimit = model.IntPtr(25)
	richer.Headings = []int{90}

	out, _ := Dedupe([]model.Camera{first, richer}, Options{})
	require.Len(t, out, 1)
	assert.Equal(t, "overpass", out[0].Provenance)
	assert.Nil(t, out[0].SpeedLimit)
	assert.Nil(t, out[0].Headings)
}

func TestDedupeByFlags(t *testing.T) {
	t.Parallel()

	in := []model.Camera{
		cam(1.0, 2.0, model.FlagRedLight, "a"),
		cam(1.0, 2.0, model.FlagSpeed, "a"),
		cam(1.00001, 2.00001, model.FlagSpeed, "b"),
	}

	out, st := Dedupe(in, Options{})
	assert.Len(t, out, 1)
	assert.Equal(t, 2, st.Dropped)

	out, st = Dedupe(in, Options{ByFlags: true})
	require.Len(t, out, 2)
	assert.Equal(t, model.FlagRedLight, out[0].Flags)
	assert.Equal(t, model.FlagSpeed, out[1].Flags)
	assert.Equal(t, map[string]int{"b": 1}, st.BySource)
}

func TestDedupeStableOrder(t *testing.T) {
	t.Parallel()

	in := []model.Camera{
		cam(3, 3, model.FlagSpeed, ""),
		cam(1, 1, model.FlagSpeed, ""),
		cam(3, 3, model.FlagSpeed, ""),
		cam(2, 2, model.FlagSpeed, ""),
	}
	out, st := Dedupe(in, Options{})
	require.Len(t, out, 3)
	assert.Equal(t, []float64{3, 1, 2}, []float64{out[0].Lat, out[1].Lat, out[2].Lat})
	assert.Nil(t, st.BySource)
}

func TestDedupeInvariant(t *testing.T) {
	t.Parallel()

	var in []model.Camera
	for i := 0; i < 500; i++ {
		// Adjacent pairs differ by less than half the key resolution.
		lat := float64(i/2)*0.001 + float64(i%2)*0.00001
		in = append(in, cam(lat, -100, model.FlagSpeed, "s"))
	}

	out, st := Dedupe(in, Options{})
	assert.Equal(t, 250, st.Kept)
	seen := map[Key]bool{}
	for _, c := range out {
		k := KeyOf(c, Options{})
		assert.False(t, seen[k], "duplicate key %v", k)
		seen[k] = true
	}
}

func TestDedupeEmpty(t *testing.T) {
	t.Parallel()

	out, st := Dedupe(nil, Options{})
	assert.Empty(t, out)
	assert.Equal(t, Stats{}, st)
}
