package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
)

func fixtureCollection() []models.Category {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.Category{
		{ID: 1, Name: "Bebidas", Description: "sucos e refrigerantes", Active: true, CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour), DependentCount: 5},
		{ID: 2, Name: "Lanches", Description: "sanduiches", Active: true, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour), DependentCount: 2},
		{ID: 3, Name: "Sobremesas", Description: "doces e bebidas quentes", Active: false, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour), DependentCount: 0},
	}
}

func ids(list []models.Category) []int64 {
	out := make([]int64, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestApply_SearchMatchesNameAndDescription(t *testing.T) {
	col := fixtureCollection()

	got := Apply(col, models.FilterSpec{Search: "BEBIDAS"})
	assert.Equal(t, []int64{1, 3}, ids(got), "case-insensitive, matches description too")

	got = Apply(col, models.FilterSpec{Search: "nenhuma"})
	assert.Empty(t, got)
}

func TestApply_ActiveTriState(t *testing.T) {
	col := fixtureCollection()

	assert.Len(t, Apply(col, models.FilterSpec{}), 3)

	active := true
	assert.Equal(t, []int64{1, 2}, ids(Apply(col, models.FilterSpec{Active: &active})))

	inactive := false
	assert.Equal(t, []int64{3}, ids(Apply(col, models.FilterSpec{Active: &inactive})))
}

func TestApply_Sorting(t *testing.T) {
	col := fixtureCollection()

	assert.Equal(t, []int64{1, 2, 3}, ids(Apply(col, models.FilterSpec{SortBy: models.SortByName})))
	assert.Equal(t, []int64{3, 2, 1}, ids(Apply(col, models.FilterSpec{SortBy: models.SortByName, Desc: true})))
	assert.Equal(t, []int64{3, 2, 1}, ids(Apply(col, models.FilterSpec{SortBy: models.SortByDependentCount})))
	assert.Equal(t, []int64{2, 3, 1}, ids(Apply(col, models.FilterSpec{SortBy: models.SortByUpdatedAt})))
}

func TestApply_StableSortPreservesTies(t *testing.T) {
	col := []models.Category{
		{ID: 10, Name: "x", DependentCount: 1},
		{ID: 11, Name: "y", DependentCount: 1},
		{ID: 12, Name: "z", DependentCount: 1},
	}
	got := Apply(col, models.FilterSpec{SortBy: models.SortByDependentCount})
	assert.Equal(t, []int64{10, 11, 12}, ids(got))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	col := fixtureCollection()
	_ = Apply(col, models.FilterSpec{SortBy: models.SortByName, Desc: true, Search: "a"})
	assert.Equal(t, []int64{1, 2, 3}, ids(col))
}
