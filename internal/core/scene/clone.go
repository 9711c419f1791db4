package scene

import "reflect"

// Cloner lets an element type control how its registered default is copied.
type Cloner[T any] interface {
	Clone() T
}

// cloneDefault returns a copy of def sharing no maps, slices or pointers
// reachable through exported fields. Unexported fields are copied as is.
func cloneDefault[T any](def T) T {
	if c, ok := any(def).(Cloner[T]); ok {
		return c.Clone()
	}
	if c, ok := any(&def).(Cloner[T]); ok {
		return c.Clone()
	}
	out := def
	c := &cloner{done: make(map[visitKey]reflect.Value)}
	c.fill(reflect.ValueOf(&out).Elem())
	return out
}

type cloner struct {
	done map[visitKey]reflect.Value
}

// fill replaces every reference in the settable value v with a fresh copy.
func (c *cloner) fill(v reflect.Value) {
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if t.Field(i).IsExported() {
				c.fill(v.Field(i))
			}
		}

	case reflect.Array:
		for i := range v.Len() {
			c.fill(v.Index(i))
		}

	case reflect.Slice:
		if v.IsNil() {
			return
		}
		n := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(n, v)
		for i := range n.Len() {
			c.fill(n.Index(i))
		}
		v.Set(n)

	case reflect.Map:
		if v.IsNil() {
			return
		}
		n := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val := reflect.New(v.Type().Elem()).Elem()
			val.Set(iter.Value())
			c.fill(val)
			n.SetMapIndex(iter.Key(), val)
		}
		v.Set(n)

	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if prev, ok := c.done[key]; ok {
			v.Set(prev)
			return
		}
		n := reflect.New(v.Type().Elem())
		c.done[key] = n
		n.Elem().Set(v.Elem())
		c.fill(n.Elem())
		v.Set(n)

	case reflect.Interface:
		if v.IsNil() {
			return
		}
		e := reflect.New(v.Elem().Type()).Elem()
		e.Set(v.Elem())
		c.fill(e)
		v.Set(e)
	}
}
