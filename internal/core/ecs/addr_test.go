package ecs

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[int64]EntityAddr

func (r mapResolver) ResolveEntity(id int64) (EntityAddr, error) {
	return r[id], nil
}

type follower struct {
	BaseElement
	Target EntityAddr       `json:"target"`
	Anchor ElementAddr[pos] `json:"anchor"`
	None   EntityAddr       `json:"none"`
}

func TestPersistentIDUsesLowBits(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000102")
	assert.Equal(t, int64(0x102), PersistentID(id))
	assert.Zero(t, EntityAddr{}.PersistentID())
}

func TestAddressJSON(t *testing.T) {
	m := NewManager()
	target := m.CreateEntity("target")
	anchor := addTo(t, target, pos{X: 4})

	data, err := json.Marshal(follower{Target: target, Anchor: anchor})
	require.NoError(t, err)
	id := strconv.FormatInt(target.PersistentID(), 10)
	assert.JSONEq(t, `{"target":`+id+`,"anchor":`+id+`,"none":0}`, string(data))

	var decoded follower
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Target.Valid(), "unlinked")

	r := mapResolver{target.PersistentID(): target}
	require.NoError(t, decoded.Target.Link(r))
	require.NoError(t, decoded.Anchor.Link(r))
	require.NoError(t, decoded.None.Link(r))

	assert.True(t, decoded.Target.Equal(target))
	assert.True(t, decoded.Anchor.Equal(anchor))
	assert.False(t, decoded.None.Valid())
}

func TestElementAddrLinkMissingElement(t *testing.T) {
	m := NewManager()
	bare := m.CreateEntity("bare")

	var a ElementAddr[pos]
	require.NoError(t, json.Unmarshal([]byte(strconv.FormatInt(bare.PersistentID(), 10)), &a))
	require.NoError(t, a.Link(mapResolver{bare.PersistentID(): bare}))
	assert.False(t, a.Valid())

	require.NoError(t, json.Unmarshal([]byte("null"), &a))
	require.NoError(t, a.Link(mapResolver{}))
	assert.False(t, a.Valid())
}
