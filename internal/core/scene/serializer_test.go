package scene

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/citrus/internal/core/ecs"
)

type Pos struct {
	ecs.BaseElement
	X int `json:"x"`
	Y int `json:"y"`
}

type Vel struct {
	ecs.BaseElement
	DX int `json:"dx"`
}

type Follow struct {
	ecs.BaseElement
	Target ecs.EntityAddr       `json:"target"`
	Anchor ecs.ElementAddr[Pos] `json:"anchor"`
}

type inner struct {
	Ref ecs.EntityAddr `json:"ref"`
}

type Group struct {
	ecs.BaseElement
	Members []ecs.EntityAddr          `json:"members"`
	ByName  map[string]ecs.EntityAddr `json:"by_name"`
	Inner   *inner                    `json:"inner"`
}

type label struct {
	ecs.BaseElement
	text string
}

func (l *label) EncodeScene() (json.RawMessage, error) {
	return json.Marshal(l.text)
}

func (l *label) DecodeScene(_ *DecodeContext, payload json.RawMessage) error {
	return json.Unmarshal(payload, &l.text)
}

// reentrant tries to start a nested load while its own payload is decoded.
type reentrant struct {
	ecs.BaseElement
	s   *Serializer
	ctx *DecodeContext
}

func (r *reentrant) DecodeScene(ctx *DecodeContext, _ json.RawMessage) error {
	r.ctx = ctx
	_, err := r.s.DeserializeScene(ctx.Manager(), nil)
	return err
}

type secret struct {
	ecs.BaseElement
}

func newSerializer(t *testing.T) *Serializer {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, Register(reg, Pos{}, "Pos"))
	require.NoError(t, Register(reg, Vel{}, "Vel"))
	require.NoError(t, Register(reg, Follow{}, "Follow"))
	require.NoError(t, Register(reg, Group{}, "Group"))
	require.NoError(t, Register(reg, label{}, "Label"))
	return NewSerializer(reg)
}

func add[T any, PT elementPtr[T]](t *testing.T, ent ecs.EntityAddr, value T) ecs.ElementAddr[T] {
	t.Helper()
	var addr ecs.ElementAddr[T]
	require.NoError(t, ent.Write(func(e *ecs.Entity) error {
		var err error
		addr, err = ecs.AddElement[T, PT](e, value)
		return err
	}))
	return addr
}

func query[T any](t *testing.T, ent ecs.EntityAddr) ecs.ElementAddr[T] {
	t.Helper()
	var addr ecs.ElementAddr[T]
	require.NoError(t, ent.Read(func(e *ecs.Entity) error {
		addr = ecs.QueryElement[T](e)
		return nil
	}))
	return addr
}

func nameOf(t *testing.T, ent ecs.EntityAddr) string {
	t.Helper()
	name, err := ent.Name()
	require.NoError(t, err)
	return name
}

func parentOf(t *testing.T, ent ecs.EntityAddr) ecs.EntityAddr {
	t.Helper()
	var parent ecs.EntityAddr
	require.NoError(t, ent.Read(func(e *ecs.Entity) error {
		parent = e.Parent()
		return nil
	}))
	return parent
}

func TestRoundTripParentAndPayload(t *testing.T) {
	s := newSerializer(t)
	src := ecs.NewManager()
	a := src.CreateEntity("A")
	b := src.CreateEntity("B")
	require.NoError(t, src.Reparent(b, a))
	add(t, a, Pos{X: 1})

	data, err := s.Marshal([]ecs.EntityAddr{a, b})
	require.NoError(t, err)

	dst := ecs.NewManager()
	res, err := s.Unmarshal(dst, data)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Unresolved)

	assert.Equal(t, 2, dst.Len())
	require.Len(t, res.Entities, 2)
	newA, newB := res.Entities[0], res.Entities[1]
	assert.Equal(t, "A", nameOf(t, newA))
	assert.Equal(t, "B", nameOf(t, newB))
	assert.True(t, parentOf(t, newB).Equal(newA))
	assert.False(t, parentOf(t, newA).Valid())
	assert.NotEqual(t, a.ID(), newA.ID())

	pos := query[Pos](t, newA)
	require.True(t, pos.Valid())
	require.NoError(t, pos.Read(func(p *Pos) error {
		assert.Equal(t, 1, p.X)
		assert.Equal(t, 0, p.Y)
		return nil
	}))
	assert.False(t, query[Pos](t, newB).Valid())

	roots := dst.Roots()
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Equal(newA))
}

func TestDocumentShape(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	a := m.CreateEntity("A")
	add(t, a, Vel{DX: 3})

	data, err := s.Marshal([]ecs.EntityAddr{a})
	require.NoError(t, err)

	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.JSONEq(t, `"A"`, string(raw[0]["name"]))
	assert.JSONEq(t, `0`, string(raw[0]["parent_payload"]))
	assert.JSONEq(t, `[{"name":"Vel","payload":{"dx":3}}]`, string(raw[0]["eles"]))

	var id int64
	require.NoError(t, json.Unmarshal(raw[0]["id"], &id))
	assert.Equal(t, a.PersistentID(), id)
}

func TestUnregisteredElementIsSkippedOnSave(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	a := m.CreateEntity("A")
	add(t, a, secret{})
	add(t, a, Pos{})

	doc, err := s.SerializeScene([]ecs.EntityAddr{a})
	require.NoError(t, err)
	require.Len(t, doc, 1)
	require.Len(t, doc[0].Elements, 1)
	assert.Equal(t, "Pos", doc[0].Elements[0].Name)
}

func TestSerializeInvalidEntity(t *testing.T) {
	s := newSerializer(t)
	_, err := s.SerializeScene([]ecs.EntityAddr{{}})
	assert.Error(t, err)
}

func TestMissingElementType(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	doc := Document{{
		Name:     "E",
		ID:       5,
		Elements: []ElementRecord{{Name: "Missing", Payload: json.RawMessage(`{}`)}},
	}}

	res, err := s.DeserializeScene(m, doc)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.True(t, res.Entities[0].Valid())
	assert.Equal(t, 1, m.Len())

	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrUnregistered)
	var elErr *ElementError
	require.ErrorAs(t, res.Errors[0], &elErr)
	assert.Equal(t, "Missing", elErr.Element)
	assert.Equal(t, "E", elErr.Entity)
	assert.Equal(t, "create", elErr.Op)
}

func TestErrorsAreAggregated(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	doc := Document{
		{Name: "A", ID: 1, Elements: []ElementRecord{
			{Name: "Pos", Payload: json.RawMessage(`{"x":2}`)},
			{Name: "Pos", Payload: json.RawMessage(`{"x":3}`)},
		}},
		{Name: "B", ID: 2, Elements: []ElementRecord{
			{Name: "Vel", Payload: json.RawMessage(`{"dx":"fast"}`)},
			{Name: "Nope"},
		}},
	}

	res, err := s.DeserializeScene(m, doc)
	require.NoError(t, err)
	require.Len(t, res.Errors, 3)
	assert.ErrorIs(t, res.Errors[0], ecs.ErrDuplicateElement)
	assert.ErrorIs(t, res.Errors[1], ErrUnregistered)

	var elErr *ElementError
	require.ErrorAs(t, res.Errors[2], &elErr)
	assert.Equal(t, "decode", elErr.Op)
	assert.Equal(t, "Vel", elErr.Element)

	require.NoError(t, query[Pos](t, res.Entities[0]).Read(func(p *Pos) error {
		assert.Equal(t, 2, p.X)
		return nil
	}))
}

func TestCycleAbortsAndRollsBack(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	keep := m.CreateEntity("keep")

	doc := Document{
		{Name: "A", ID: 1, Parent: json.RawMessage(`2`), Elements: []ElementRecord{{Name: "Pos"}}},
		{Name: "B", ID: 2, Parent: json.RawMessage(`1`)},
	}

	res, err := s.DeserializeScene(m, doc)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ecs.ErrCycle)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	require.Len(t, cycle.Pairs, 1)
	assert.Equal(t, "B", cycle.Pairs[0].Child)
	assert.Equal(t, "A", cycle.Pairs[0].Parent)

	assert.Equal(t, 1, m.Len())
	assert.True(t, keep.Valid())
	entities, elements := m.Pending()
	assert.Zero(t, entities)
	assert.Zero(t, elements)
}

func TestDuplicateIDRejected(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	doc := Document{{Name: "A", ID: 7}, {Name: "B", ID: 7}}

	_, err := s.DeserializeScene(m, doc)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Zero(t, m.Len())
}

func TestElementReferences(t *testing.T) {
	s := newSerializer(t)
	src := ecs.NewManager()
	a := src.CreateEntity("A")
	b := src.CreateEntity("B")
	require.NoError(t, src.Reparent(b, a))
	anchor := add(t, a, Pos{X: 4})
	add(t, b, Follow{Target: a, Anchor: anchor})

	// B precedes A so its references point forward.
	data, err := s.Marshal([]ecs.EntityAddr{b, a})
	require.NoError(t, err)

	dst := ecs.NewManager()
	res, err := s.Unmarshal(dst, data)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	newB, newA := res.Entities[0], res.Entities[1]

	follow := query[Follow](t, newB)
	require.True(t, follow.Valid())
	require.NoError(t, follow.Read(func(f *Follow) error {
		assert.True(t, f.Target.Equal(newA))
		assert.True(t, f.Anchor.Equal(query[Pos](t, newA)))
		return f.Anchor.Read(func(p *Pos) error {
			assert.Equal(t, 4, p.X)
			return nil
		})
	}))
}

func TestNullReferenceStaysInvalid(t *testing.T) {
	s := newSerializer(t)
	src := ecs.NewManager()
	a := src.CreateEntity("A")
	add(t, a, Follow{})

	data, err := s.Marshal([]ecs.EntityAddr{a})
	require.NoError(t, err)

	dst := ecs.NewManager()
	res, err := s.Unmarshal(dst, data)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Empty(t, res.Unresolved)
	assert.Equal(t, 1, dst.Len())

	require.NoError(t, query[Follow](t, res.Entities[0]).Read(func(f *Follow) error {
		assert.False(t, f.Target.Valid())
		assert.False(t, f.Anchor.Valid())
		return nil
	}))
}

func TestUnknownIDResolvesToNull(t *testing.T) {
	s := newSerializer(t)
	m := ecs.NewManager()
	doc := Document{{
		Name:     "E",
		ID:       1,
		Parent:   json.RawMessage(`99`),
		Elements: []ElementRecord{{Name: "Follow", Payload: json.RawMessage(`{"target":99,"anchor":42}`)}},
	}}

	res, err := s.DeserializeScene(m, doc)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, []int64{42, 99}, res.Unresolved)
	assert.Equal(t, 1, m.Len())
	assert.False(t, parentOf(t, res.Entities[0]).Valid())
	roots := m.Roots()
	require.Len(t, roots, 1)
	assert.True(t, roots[0].Equal(res.Entities[0]))

	require.NoError(t, query[Follow](t, res.Entities[0]).Read(func(f *Follow) error {
		assert.False(t, f.Target.Valid())
		assert.False(t, f.Anchor.Valid())
		return nil
	}))
}

func TestSubsetLoadsWithoutStrayEntities(t *testing.T) {
	s := newSerializer(t)
	src := ecs.NewManager()
	a := src.CreateEntity("A")
	b := src.CreateEntity("B")
	require.NoError(t, src.Reparent(b, a))
	add(t, b, Follow{Target: a})

	data, err := s.Marshal([]ecs.EntityAddr{b})
	require.NoError(t, err)

	dst := ecs.NewManager()
	res, err := s.Unmarshal(dst, data)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, []int64{a.PersistentID()}, res.Unresolved)

	assert.Equal(t, 1, dst.Len())
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "B", nameOf(t, res.Entities[0]))
	assert.False(t, parentOf(t, res.Entities[0]).Valid())
	require.NoError(t, query[Follow](t, res.Entities[0]).Read(func(f *Follow) error {
		assert.False(t, f.Target.Valid())
		return nil
	}))
}

func TestNestedReferencesAreLinked(t *testing.T) {
	s := newSerializer(t)
	src := ecs.NewManager()
	a := src.CreateEntity("A")
	b := src.CreateEntity("B")
	g := src.CreateEntity("G")
	add(t, g, Group{
		Members: []ecs.EntityAddr{a, b},
		ByName:  map[string]ecs.EntityAddr{"first": a},
		Inner:   &inner{Ref: b},
	})

	data, err := s.Marshal([]ecs.EntityAddr{a, b, g})
	require.NoError(t, err)

	dst := ecs.NewManager()
	res, err := s.Unmarshal(dst, data)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	newA, newB, newG := res.Entities[0], res.Entities[1], res.Entities[2]

	require.NoError(t, query[Group](t, newG).Read(func(grp *Group) error {
		require.Len(t, grp.Members, 2)
		assert.True(t, grp.Members[0].Equal(newA))
		assert.True(t, grp.Members[1].Equal(newB))
		assert.True(t, grp.ByName["first"].Equal(newA))
		require.NotNil(t, grp.Inner)
		assert.True(t, grp.Inner.Ref.Equal(newB))
		return nil
	}))
}

func TestCustomCodec(t *testing.T) {
	s := newSerializer(t)
	src := ecs.NewManager()
	a := src.CreateEntity("A")
	add(t, a, label{text: "hello"})

	doc, err := s.SerializeScene([]ecs.EntityAddr{a})
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(doc[0].Elements[0].Payload))

	dst := ecs.NewManager()
	res, err := s.DeserializeScene(dst, doc)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.NoError(t, query[label](t, res.Entities[0]).Read(func(l *label) error {
		assert.Equal(t, "hello", l.text)
		return nil
	}))
}

func TestOneLoadInFlight(t *testing.T) {
	reg := NewRegistry()
	s := NewSerializer(reg)
	require.NoError(t, Register(reg, reentrant{s: s}, "Reentrant"))

	m := ecs.NewManager()
	doc := Document{{Name: "A", ID: 1, Elements: []ElementRecord{{Name: "Reentrant"}}}}
	res, err := s.DeserializeScene(m, doc)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrDeserializeActive)

	var ctx *DecodeContext
	require.NoError(t, query[reentrant](t, res.Entities[0]).Read(func(r *reentrant) error {
		ctx = r.ctx
		return nil
	}))
	require.NotNil(t, ctx)
	_, err = ctx.ResolveEntity(1)
	assert.ErrorIs(t, err, ErrNotDeserializing)

	_, err = s.DeserializeScene(m, Document{{Name: "B", ID: 2}})
	assert.NoError(t, err, "guard is released after a load")
}

func TestSaveAndLoadFile(t *testing.T) {
	s := NewSerializer(NewRegistry(), WithIndent("  "))
	require.NoError(t, Register(s.Registry(), Pos{}, "Pos"))

	src := ecs.NewManager()
	a := src.CreateEntity("A")
	add(t, a, Pos{X: 9, Y: 8})

	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, s.SaveFile(path, []ecs.EntityAddr{a}))

	dst := ecs.NewManager()
	res, err := s.LoadFile(dst, path)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.NoError(t, query[Pos](t, res.Entities[0]).Read(func(p *Pos) error {
		assert.Equal(t, 9, p.X)
		assert.Equal(t, 8, p.Y)
		return nil
	}))

	_, err = s.LoadFile(dst, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
