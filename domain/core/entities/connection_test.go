package entities

import (
	"testing"

	"neurotwin-backend/domain/core/valueobjects"
	pkgerrors "neurotwin-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection(t *testing.T) {
	tests := []struct {
		name     string
		id       valueobjects.ConnectionID
		source   valueobjects.RegionID
		target   valueobjects.RegionID
		strength float64
		ctype    ConnectionType
		wantErr  bool
	}{
		{name: "valid", id: "c1", source: "a", target: "b", strength: 0.7, ctype: ConnectionTypeExcitatory},
		{name: "self loop allowed", id: "c1", source: "a", target: "a", strength: 0.5, ctype: ConnectionTypeModulatory},
		{name: "missing id", id: "", source: "a", target: "b", strength: 0.5, ctype: ConnectionTypeExcitatory, wantErr: true},
		{name: "missing source", id: "c1", source: "", target: "b", strength: 0.5, ctype: ConnectionTypeExcitatory, wantErr: true},
		{name: "missing target", id: "c1", source: "a", target: "", strength: 0.5, ctype: ConnectionTypeExcitatory, wantErr: true},
		{name: "strength too high", id: "c1", source: "a", target: "b", strength: 1.1, ctype: ConnectionTypeExcitatory, wantErr: true},
		{name: "strength negative", id: "c1", source: "a", target: "b", strength: -0.1, ctype: ConnectionTypeExcitatory, wantErr: true},
		{name: "unknown type", id: "c1", source: "a", target: "b", strength: 0.5, ctype: "osmotic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := NewConnection(tt.id, tt.source, tt.target, tt.strength, tt.ctype, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, conn.ID())
			assert.Equal(t, tt.strength, conn.Strength())
			assert.Equal(t, tt.ctype, conn.Type())
		})
	}
}

func TestNewConnection_StrengthRangeError(t *testing.T) {
	_, err := NewConnection("c1", "a", "b", 2.0, ConnectionTypeExcitatory, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRange(err))
}

func TestConnection_OptionalActivity(t *testing.T) {
	conn, err := NewConnection("c1", "a", "b", 0.5, ConnectionTypeInhibitory, nil)
	require.NoError(t, err)
	_, ok := conn.ActivityLevel()
	assert.False(t, ok)

	level, err := valueobjects.NewActivityLevel(0.4)
	require.NoError(t, err)
	conn, err = NewConnection("c2", "a", "b", 0.5, ConnectionTypeBidirectional, &level)
	require.NoError(t, err)
	got, ok := conn.ActivityLevel()
	require.True(t, ok)
	assert.Equal(t, 0.4, got.Value())
	assert.True(t, conn.IsBidirectional())
}

func TestConnection_Involves(t *testing.T) {
	conn, err := NewConnection("c1", "a", "b", 0.5, ConnectionTypeExcitatory, nil)
	require.NoError(t, err)

	assert.True(t, conn.Involves("a"))
	assert.True(t, conn.Involves("b"))
	assert.False(t, conn.Involves("c"))
}
