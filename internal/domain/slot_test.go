package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlotCatalogDefaultHours(t *testing.T) {
	catalog, err := NewSlotCatalog(DefaultOpenTime, DefaultCloseTime)
	require.NoError(t, err)

	require.Equal(t, 14, catalog.Len())
	assert.Equal(t, "10:00 - 10:30", catalog.At(0).Label())
	assert.Equal(t, "16:30 - 17:00", catalog.At(13).Label())
}

func TestNewSlotCatalogDropsShortTail(t *testing.T) {
	catalog, err := NewSlotCatalog("09:00", "10:45")
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00 - 09:30", "09:30 - 10:00", "10:00 - 10:30"}, catalog.Labels())
}

func TestNewSlotCatalogRejectsBadHours(t *testing.T) {
	_, err := NewSlotCatalog("17:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidWorkingHours)

	_, err = NewSlotCatalog("10:00", "10:15")
	assert.ErrorIs(t, err, ErrInvalidWorkingHours)

	_, err = NewSlotCatalog("ten", "17:00")
	assert.ErrorIs(t, err, ErrInvalidWorkingHours)
}

func TestSlotCatalogIndexOf(t *testing.T) {
	catalog, err := NewSlotCatalog(DefaultOpenTime, DefaultCloseTime)
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.IndexOf("11:00 - 11:30"))
	assert.Equal(t, 2, catalog.IndexOf("11:00"))
	assert.Equal(t, 2, catalog.IndexOf(" 11:00 - 11:30 "))
	assert.Equal(t, 2, catalog.IndexOf("11:00-11:30"))
	assert.Equal(t, 2, catalog.IndexOf("11:00 -11:30"))
	assert.Equal(t, -1, catalog.IndexOf("11:00-12:00"))
	assert.Equal(t, -1, catalog.IndexOf("-"))
	assert.Equal(t, -1, catalog.IndexOf("11:15"))
	assert.Equal(t, -1, catalog.IndexOf(""))
}

func TestSlotsNeeded(t *testing.T) {
	assert.Equal(t, 1, SlotsNeeded(0))
	assert.Equal(t, 1, SlotsNeeded(-10))
	assert.Equal(t, 1, SlotsNeeded(30))
	assert.Equal(t, 2, SlotsNeeded(31))
	assert.Equal(t, 2, SlotsNeeded(60))
	assert.Equal(t, 3, SlotsNeeded(90))
}
