package water

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChores(t *testing.T) *ChoreTable {
	table, err := NewChoreTable(DefaultChores())
	require.NoError(t, err)
	return table
}

func TestChoreTable_Lookup(t *testing.T) {
	table := newTestChores(t)

	c, err := table.Lookup("  drinking/cooking ")
	require.NoError(t, err)
	assert.Equal(t, "Drinking/Cooking", c.Name)
	assert.Equal(t, UseDrinking, c.Use)

	_, err = table.Lookup("Car Wash")
	var ie *InvalidInputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "chore", ie.Field)
	assert.Contains(t, ie.Reason, "Watering Plants")

	assert.Len(t, table.Names(), len(DefaultChores()))
	assert.IsIncreasing(t, table.Names())
}

func TestNewChoreTable_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		chores []Chore
		field  string
	}{
		{name: "Empty name", chores: []Chore{{Name: " "}}, field: "chores[0].name"},
		{name: "Inverted range", chores: []Chore{{Name: "Tea", TDS: Range{Min: 200, Max: 100}}}, field: "chores[0].tds"},
		{name: "Negative ideal", chores: []Chore{{Name: "Tea", IdealHardness: -1}}, field: "chores[0].ideal_hardness"},
		{name: "Duplicate", chores: []Chore{{Name: "Tea"}, {Name: "TEA"}}, field: "chores[1].name"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChoreTable(tc.chores)
			var ie *InvalidInputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestRecommend(t *testing.T) {
	table := newTestChores(t)
	dishwashing, err := table.Lookup("Dishwashing (Machine)")
	require.NoError(t, err)

	current := 248.39
	rec, err := Recommend(dishwashing, 10, &current, DefaultDevices())
	require.NoError(t, err)

	assert.Equal(t, "50 - 150 mg/L", rec.OptimalTDSRange)
	assert.Equal(t, "0 - 50 mg/L", rec.OptimalHardnessRange)
	assert.Equal(t, "6.5 - 7.5", rec.OptimalPHRange)
	assert.Equal(t, 30.0, rec.IdealHardness)
	assert.Equal(t, 30.0, rec.TargetHardness)
	require.NotNil(t, rec.NeededReduction)
	assert.InDelta(t, 218.39, *rec.NeededReduction, 1e-9)
	require.Len(t, rec.Estimates, 4)
	for _, e := range rec.Estimates {
		assert.True(t, e.CanReachTarget, e.Device)
	}
	assert.Contains(t, rec.ConversionAdvice, "Calcium below 20.0 mg/L")
}

func TestRecommend_AlreadySoft(t *testing.T) {
	table := newTestChores(t)
	plants, err := table.Lookup("Watering Plants")
	require.NoError(t, err)

	current := 40.0
	rec, err := Recommend(plants, 5, &current, DefaultDevices())
	require.NoError(t, err)
	require.NotNil(t, rec.NeededReduction)
	assert.Equal(t, 0.0, *rec.NeededReduction)
	assert.Empty(t, rec.Estimates)
	assert.NotNil(t, rec.Estimates)
}

func TestRecommend_NoCurrentHardness(t *testing.T) {
	table := newTestChores(t)
	tea, err := table.Lookup("Making Tea/Coffee")
	require.NoError(t, err)

	rec, err := Recommend(tea, 1.5, nil, DefaultDevices())
	require.NoError(t, err)
	assert.Nil(t, rec.CurrentHardness)
	assert.Nil(t, rec.NeededReduction)
	assert.Empty(t, rec.Estimates)
	assert.Equal(t, 75.0, rec.TargetHardness)
}

func TestRecommend_InvalidVolume(t *testing.T) {
	table := newTestChores(t)
	tea, err := table.Lookup("Making Tea/Coffee")
	require.NoError(t, err)

	for _, v := range []float64{0, -1} {
		_, err := Recommend(tea, v, nil, nil)
		var ie *InvalidInputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "volume_liters", ie.Field)
	}
}

func TestChore_Suitability(t *testing.T) {
	table := newTestChores(t)

	testCases := []struct {
		name     string
		chore    string
		sample   Sample
		hardness float64
		rating   Rating
		mention  string
	}{
		{name: "Drinking low TDS", chore: "Drinking/Cooking", sample: Sample{TDS: 250, PH: 7}, hardness: 80, rating: RatingExcellent, mention: "pH (7.0): Optimal"},
		{name: "Drinking high TDS", chore: "Drinking/Cooking", sample: Sample{TDS: 700, PH: 9}, hardness: 80, rating: RatingPoor, mention: "Suboptimal"},
		{name: "Washing hard water", chore: "Washing/Laundry", sample: Sample{TDS: 400, PH: 7}, hardness: 200, rating: RatingPoor, mention: "Hard/Very Hard"},
		{name: "Washing residue", chore: "Dishwashing (Machine)", sample: Sample{TDS: 900, PH: 7}, hardness: 100, rating: RatingAcceptable, mention: "white residue"},
		{name: "Gardening chlorine", chore: "Gardening", sample: Sample{TDS: 500, PH: 7, Chlorine: 0.6}, hardness: 100, rating: RatingAcceptable, mention: "de-chlorinator"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := table.Lookup(tc.chore)
			require.NoError(t, err)

			s := c.Suitability(tc.sample, tc.hardness)
			assert.Equal(t, tc.rating, s.Rating)
			assert.NotEmpty(t, s.Recommendation)
			assert.Contains(t, strings.Join(s.Analysis, "\n"), tc.mention)
			assert.NotEmpty(t, s.CaTarget)
		})
	}
}

func TestChore_SuitabilityByRange(t *testing.T) {
	c := Chore{Name: "Aquarium", TDS: Range{Min: 100, Max: 300}, Hardness: Range{Min: 50, Max: 150}, PH: Range{Min: 6.5, Max: 7.5}}

	s := c.Suitability(Sample{TDS: 200, PH: 7}, 100)
	assert.Equal(t, RatingExcellent, s.Rating)

	s = c.Suitability(Sample{TDS: 500, PH: 7}, 100)
	assert.Equal(t, RatingAcceptable, s.Rating)

	s = c.Suitability(Sample{TDS: 500, PH: 9}, 400)
	assert.Equal(t, RatingPoor, s.Rating)
	assert.Len(t, s.Analysis, 3)
}

func TestGeneralSuitability(t *testing.T) {
	assert.Equal(t, RatingExcellent, GeneralSuitability(Sample{TDS: 300}, 100).Rating)
	assert.Equal(t, RatingAcceptable, GeneralSuitability(Sample{TDS: 300}, 200).Rating)
	assert.Equal(t, RatingPoor, GeneralSuitability(Sample{TDS: 700}, 200).Rating)
}
