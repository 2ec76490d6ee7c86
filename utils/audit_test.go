package utils

import (
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChangeEntryDropsPII(t *testing.T) {
	messages := core.NewBaseCollection(CollectionMessages)
	messages.Fields.Add(
		&core.TextField{Name: FieldName},
		&core.TextField{Name: "email"},
		&core.TextField{Name: FieldPhone},
		&core.TextField{Name: "attendance"},
	)
	r := core.NewRecord(messages)
	r.Id = "m1"
	r.Set(FieldName, "Siti")
	r.Set("email", "siti@example.com")
	r.Set(FieldPhone, "08123456789")
	r.Set("attendance", "yes")

	entry := recordChangeEntry("create", CollectionMessages, r.Id, r.FieldsData())

	assert.Equal(t, "create", entry.Action)
	assert.Equal(t, "m1", entry.ResourceID)
	require.Contains(t, entry.Changes, "data")
	snapshot, ok := entry.Changes["data"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "Siti", snapshot[FieldName])
	assert.Equal(t, "yes", snapshot["attendance"])
	for _, key := range []string{"email", FieldPhone, FieldPhoneIndex} {
		assert.NotContains(t, snapshot, key)
	}
	_, nested := snapshot["data"]
	assert.False(t, nested, "snapshot must not be wrapped twice")
}

func TestRecordChangeEntryDropsGuestPhoneIndex(t *testing.T) {
	entry := recordChangeEntry("update", CollectionGuests, "g1", map[string]any{
		FieldName:       "Budi",
		FieldPhone:      "enc:abc",
		FieldPhoneIndex: "6281",
	})
	assert.Equal(t, map[string]any{"data": map[string]any{FieldName: "Budi"}}, entry.Changes)
}

func TestRecordChangeEntryDelete(t *testing.T) {
	entry := recordChangeEntry("delete", CollectionGuests, "g1", nil)
	assert.Nil(t, entry.Changes)
	assert.Equal(t, "success", entry.Status)
}
