package metadata

import (
	"testing"
	"time"

	"github.com/Marwakhot/chronicles/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValueMissingKey(t *testing.T) {
	db := testutil.NewTestDB(t, &Metadata{})

	value, err := GetValue(db, "nope")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestSetValueUpserts(t *testing.T) {
	db := testutil.NewTestDB(t, &Metadata{})

	require.NoError(t, SetValue(db, LastGossipEditionKey, "2026-10-01"))
	require.NoError(t, SetValue(db, LastGossipEditionKey, "2026-10-02"))

	value, err := GetValue(db, LastGossipEditionKey)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-02", value)

	var count int64
	require.NoError(t, db.Model(&Metadata{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordGossipGeneration(t *testing.T) {
	db := testutil.NewTestDB(t, &Metadata{})

	at, err := GetLastGossipGeneratedAt(db)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	now := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	require.NoError(t, RecordGossipGeneration(db, "2026-10-19", now))

	edition, err := GetLastGossipEdition(db)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", edition)

	at, err = GetLastGossipGeneratedAt(db)
	require.NoError(t, err)
	assert.True(t, now.Equal(at))
}
