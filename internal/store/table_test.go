package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/waypoint/internal/errs"
)

func TestParseTable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Table
		wantErr bool
	}{
		{"locations", Locations, false},
		{"restaurants", Restaurants, false},
		{"cafes", Cafes, false},
		{"landmarks", Landmarks, false},
		{"Locations", 0, true},
		{" locations", 0, true},
		{"", 0, true},
		{"favorites", 0, true},
		{"drop table locations", 0, true},
		{"locations; DROP TABLE favorites", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTable(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errs.ErrInvalidTable)
				assert.Contains(t, err.Error(), "allowed: locations, restaurants, cafes, landmarks")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestTable_TextRoundTrip(t *testing.T) {
	t.Parallel()
	type wrapper struct {
		Table Table `json:"table"`
	}
	data, err := json.Marshal(wrapper{Table: Landmarks})
	require.NoError(t, err)
	assert.JSONEq(t, `{"table":"landmarks"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"table":"cafes"}`), &w))
	assert.Equal(t, Cafes, w.Table)

	err = json.Unmarshal([]byte(`{"table":"sqlite_master"}`), &w)
	assert.ErrorIs(t, err, errs.ErrInvalidTable)
}

func TestTable_ZeroValueInvalid(t *testing.T) {
	t.Parallel()
	var zero Table
	assert.False(t, zero.Valid())
	_, err := zero.statements()
	assert.ErrorIs(t, err, errs.ErrInvalidTable)
}

func TestTableStatements_OnlyAllowListedIdentifiers(t *testing.T) {
	t.Parallel()
	for _, tbl := range Tables() {
		q, err := tbl.statements()
		require.NoError(t, err)
		assert.Contains(t, q.get, "FROM "+tbl.String()+" ")
	}
}
