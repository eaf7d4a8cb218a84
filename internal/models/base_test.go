package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	id := NewULID()
	assert.False(t, id.IsZero())
	assert.NotEqual(t, id, NewULID())
}

func TestParseULID(t *testing.T) {
	original := NewULID()
	parsed, err := ParseULID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = ParseULID("not-a-ulid")
	assert.ErrorContains(t, err, "invalid ULID")
}

func TestULID_Value(t *testing.T) {
	v, err := ULID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	id := NewULID()
	v, err = id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)
}

func TestULID_Scan(t *testing.T) {
	id := NewULID()

	tests := []struct {
		name    string
		input   any
		want    ULID
		wantErr bool
	}{
		{"nil", nil, ULID{}, false},
		{"empty string", "", ULID{}, false},
		{"string", id.String(), id, false},
		{"bytes", []byte(id.String()), id, false},
		{"garbage", "xyz", ULID{}, true},
		{"int", 42, ULID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ULID
			err := got.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestULID_JSON(t *testing.T) {
	fav := Favorite{BaseModel: BaseModel{ID: NewULID()}, StreamID: 501}
	data, err := json.Marshal(fav)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"`+fav.ID.String()+`"`)
	assert.Contains(t, string(data), `"stream_id":501`)

	var decoded Favorite
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, fav.ID, decoded.ID)
}

func TestBaseModel_BeforeCreate(t *testing.T) {
	m := &BaseModel{}
	require.NoError(t, m.BeforeCreate(nil))
	assert.False(t, m.ID.IsZero())

	existing := NewULID()
	m = &BaseModel{ID: existing}
	require.NoError(t, m.BeforeCreate(nil))
	assert.Equal(t, existing, m.ID)
}

func TestFavorite_TableName(t *testing.T) {
	assert.Equal(t, "favorites", Favorite{}.TableName())
}
