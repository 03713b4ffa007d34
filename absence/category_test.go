package absence_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personalman/absence-server/absence"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want absence.Category
		ok   bool
	}{
		{"Illness", absence.Illness, true},
		{"Holiday", absence.Holiday, true},
		{"Trip", absence.Trip, true},
		{"Conference", absence.Conference, true},
		{"Day in Lieu", absence.DayInLieu, true},
		{"Day in Lieu Request", absence.DayInLieuRequest, true},
		{"Federal Holiday", absence.FederalHoliday, true},
		{"Trip2", absence.CategoryNone, false},
		{"holiday", absence.CategoryNone, false},
		{"MyHoliday", absence.CategoryNone, false},
		{"", absence.CategoryNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := absence.ParseCategory(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategory_JSON(t *testing.T) {
	type payload struct {
		Category absence.Category `json:"category"`
	}

	out, err := json.Marshal(payload{Category: absence.DayInLieu})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"Day in Lieu"}`, string(out))

	var in payload
	err = json.Unmarshal([]byte(`{"category":"Holidays"}`), &in)
	assert.ErrorIs(t, err, absence.ErrUnknownCategory)

	_, err = json.Marshal(payload{})
	assert.Error(t, err, "zero category must not serialize")
}

func TestCategory_IsValidAndMarshalText(t *testing.T) {
	for _, c := range absence.Categories() {
		assert.True(t, c.IsValid(), c.String())
		text, err := c.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, c.String(), string(text))
	}

	for _, c := range []absence.Category{absence.CategoryNone, absence.Category(-1), absence.Category(99)} {
		assert.False(t, c.IsValid())
		_, err := c.MarshalText()
		assert.ErrorIs(t, err, absence.ErrUnknownCategory)
	}
}

func TestAggregateStatistics_SeededWithEveryCategory(t *testing.T) {
	stats := absence.AggregateStatistics(nil)

	assert.Len(t, stats, len(absence.Categories()))
	for _, c := range absence.Categories() {
		assert.Contains(t, stats, c.String())
		assert.Zero(t, stats[c.String()])
	}
}

func TestAggregateStatistics_SumsDays(t *testing.T) {
	records := []absence.Record{
		absence.NewRecord("c", "u", date(2015, time.April, 6), date(2015, time.April, 9), absence.Trip),
		absence.NewRecord("c", "u", date(2015, time.April, 6), date(2015, time.April, 6), absence.DayInLieuRequest),
		absence.NewRecord("c", "u", date(2015, time.April, 9), date(2015, time.April, 9), absence.DayInLieuRequest),
		absence.NewRecord("c", "u", date(2015, time.May, 4), date(2015, time.May, 4), absence.Illness),
	}

	stats := absence.AggregateStatistics(records)

	assert.Equal(t, 4, stats["Trip"])
	assert.Equal(t, 2, stats["Day in Lieu Request"])
	assert.Equal(t, 1, stats["Illness"])
	assert.Equal(t, 0, stats["Holiday"])
}
