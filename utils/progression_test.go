package utils

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

func TestCalculateLevel(t *testing.T) {
	cases := map[int]int{
		0:    1,
		100:  1,
		499:  1,
		500:  2,
		999:  2,
		1000: 3,
		4500: 10,
	}
	for points, want := range cases {
		assert.Equal(t, want, CalculateLevel(points), "points=%d", points)
	}
}

func TestCalculatePoints(t *testing.T) {
	assert.Equal(t, 0, CalculatePoints(0))
	assert.Equal(t, 400, CalculatePoints(4))
	assert.Equal(t, 500, CalculatePoints(5))
	assert.Equal(t, 0, CalculatePoints(-1))
}

func TestEarnedMedals(t *testing.T) {
	ids := func(ms []stats.Medal) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Empty(t, EarnedMedals(400, 1))
	assert.Equal(t, []string{"5_challenges"}, ids(EarnedMedals(500, 2)))
	assert.Equal(t, []string{"level_5", "5_challenges"}, ids(EarnedMedals(2000, 5)))
	assert.Equal(t, []string{"level_5", "level_10", "5_challenges"}, ids(EarnedMedals(4500, 10)))
}

func TestAwardMedalsIsIdempotent(t *testing.T) {
	h := stats.DefaultHistorical()

	added := AwardMedals(&h, 500, 2)
	assert.Len(t, added, 1)
	assert.Len(t, h.Medals, 1)

	added = AwardMedals(&h, 600, 2)
	assert.Empty(t, added)
	assert.Len(t, h.Medals, 1)

	added = AwardMedals(&h, 2000, 5)
	assert.Len(t, added, 1)
	assert.Equal(t, "level_5", added[0].ID)
	assert.Len(t, h.Medals, 2)
}

func TestTierForPoints(t *testing.T) {
	assert.Equal(t, social.TierNone, TierForPoints(0))
	assert.Equal(t, social.TierBronze, TierForPoints(100))
	assert.Equal(t, social.TierSilver, TierForPoints(500))
	assert.Equal(t, social.TierGold, TierForPoints(1000))
	assert.Equal(t, social.TierPlatinum, TierForPoints(2500))
}

func catalogOf(ids ...string) []challenge.Template {
	out := make([]challenge.Template, 0, len(ids))
	for _, id := range ids {
		out = append(out, challenge.Template{ID: id, Title: "title " + id})
	}
	return out
}

func TestDrawTemplatesSkipsUsed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	catalog := catalogOf("a", "b", "c", "d", "e", "f", "g", "h")
	used := map[string]bool{"a": true, "b": true, "c": true}

	drawn := DrawTemplates(rng, catalog, used, 5, true)

	assert.Len(t, drawn, 5)
	seen := map[string]bool{}
	for _, d := range drawn {
		assert.False(t, used[d.ID], "drew used template %s", d.ID)
		assert.False(t, seen[d.ID], "drew %s twice", d.ID)
		seen[d.ID] = true
	}
}

func TestDrawTemplatesFallsBackToFullCatalog(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	catalog := catalogOf("a", "b", "c", "d", "e", "f")
	used := map[string]bool{"a": true, "b": true, "c": true, "d": true}

	drawn := DrawTemplates(rng, catalog, used, 3, true)
	assert.Len(t, drawn, 3)

	unique := DrawTemplates(rng, catalog, used, 3, false)
	assert.Len(t, unique, 2)
	for _, d := range unique {
		assert.False(t, used[d.ID])
	}
}

func TestDrawTemplatesDoesNotMutateCatalog(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	catalog := catalogOf("a", "b", "c", "d", "e")
	before := append([]challenge.Template(nil), catalog...)

	DrawTemplates(rng, catalog, map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true}, 2, true)

	if diff := cmp.Diff(before, catalog); diff != "" {
		t.Errorf("catalog changed (-before +after):\n%s", diff)
	}
}

func TestDrawTemplatesEdgeCases(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Nil(t, DrawTemplates(rng, nil, nil, 5, true))
	assert.Nil(t, DrawTemplates(rng, catalogOf("a"), nil, 0, true))
	assert.Len(t, DrawTemplates(rng, catalogOf("a", "b"), nil, 5, true), 2)
}
