package scene

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/zeusync/citrus/internal/core/ecs"
)

var linkableType = reflect.TypeFor[ecs.Linkable]()

type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

// linker walks a decoded value and links every ecs.Linkable it can address.
// Unexported fields are skipped; a Linkable is linked but not descended into.
type linker struct {
	r    ecs.Resolver
	seen map[visitKey]struct{}
	errs []error
}

func link(v any, r ecs.Resolver) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return fmt.Errorf("scene: link target must be a pointer, got %s", rv.Type())
	}
	l := &linker{r: r, seen: make(map[visitKey]struct{})}
	l.walk(rv, "")
	return errors.Join(l.errs...)
}

func (l *linker) walk(v reflect.Value, path string) {
	if v.CanAddr() && v.Addr().Type().Implements(linkableType) {
		if err := v.Addr().Interface().(ecs.Linkable).Link(l.r); err != nil {
			l.errs = append(l.errs, fmt.Errorf("link %s: %w", pathOrRoot(path), err))
		}
		return
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if _, ok := l.seen[key]; ok {
			return
		}
		l.seen[key] = struct{}{}
		l.walk(v.Elem(), path)

	case reflect.Interface:
		if !v.IsNil() && v.Elem().Kind() == reflect.Pointer {
			l.walk(v.Elem(), path)
		}

	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			l.walk(v.Field(i), path+"."+f.Name)
		}

	case reflect.Slice, reflect.Array:
		if scalar(v.Type().Elem().Kind()) {
			return
		}
		for i := range v.Len() {
			l.walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
		}

	case reflect.Map:
		if scalar(v.Type().Elem().Kind()) {
			return
		}
		for _, k := range v.MapKeys() {
			cp := reflect.New(v.Type().Elem()).Elem()
			cp.Set(v.MapIndex(k))
			l.walk(cp, fmt.Sprintf("%s[%v]", path, k))
			v.SetMapIndex(k, cp)
		}
	}
}

func scalar(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return false
	}
	return true
}

func pathOrRoot(path string) string {
	if path == "" {
		return "value"
	}
	return strings.TrimPrefix(path, ".")
}
