package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/camera-db/internal/model"
)

func TestParseSpeedTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Speed
		ok   bool
	}{
		{"35", Speed{Value: 35}, true},
		{"35 mph", Speed{Value: 35}, true},
		{"80 km/h", Speed{Value: 80, Unit: model.UnitKMH}, true},
		{"60 kph", Speed{Value: 60, Unit: model.UnitKMH}, true},
		{"US:urban", Speed{}, false},
		{"", Speed{}, false},
		{"0", Speed{}, false},
		{"999", Speed{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSpeedTag(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpeedText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Speed
		ok   bool
	}{
		{"Main St - 35 MPH", Speed{Value: 35}, true},
		{"Hwy 1 @ 50km/h", Speed{Value: 50, Unit: model.UnitKMH}, true},
		{"Route 66 camera", Speed{}, false},
		{"1234 Elm Ave", Speed{}, false},
		{"", Speed{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSpeedText(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHeading(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0", 0, true},
		{"90", 90, true},
		{"359.9", 359, true},
		{"360", 0, true},
		{"400", 0, false},
		{"-10", 0, false},
		{"nw", 315, true},
		{"SSE", 158, true},
		{"forward", 0, false},
		{"NaN", 0, false},
		{"nan", 0, false},
		{"Inf", 0, false},
		{"-Infinity", 0, false},
		{" ", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseHeading(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHeadings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{90, 270}, ParseHeadings("90;270"))
	assert.Equal(t, []int{90, 180}, ParseHeadings("90;90;180;270"))
	assert.Equal(t, []int{45}, ParseHeadings("400;NE"))
	assert.Nil(t, ParseHeadings("400"))
	assert.Nil(t, ParseHeadings(""))
}

func TestFirst(t *testing.T) {
	t.Parallel()

	tags := map[string]string{"maxspeed": "signals", "name": "Camera 45 mph"}
	sp, ok := First(tags, SpeedTag("maxspeed"), SpeedText("name"))
	assert.True(t, ok)
	assert.Equal(t, 45, sp.Value)

	_, ok = First[Speed](map[string]string{})
	assert.False(t, ok)
}
