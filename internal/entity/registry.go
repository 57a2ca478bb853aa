// Package entity реализует арену сущностей с поколенческими идентификаторами
// и набор игровых компонентов.
package entity

import (
	"errors"
	"fmt"
)

// ErrNotFound сущность не существует или дескриптор устарел
var ErrNotFound = errors.New("entity not found")

type slot struct {
	generation uint32
	entity     *Entity
}

// DespawnHook вызывается для каждой удаляемой сущности до освобождения слота
type DespawnHook func(e *Entity)

// Registry арена сущностей. Не потокобезопасна: принадлежит игровому циклу.
type Registry struct {
	slots []slot
	free  []uint32
	alive int
	hooks []DespawnHook
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{}
}

// OnDespawn регистрирует обработчик удаления
func (r *Registry) OnDespawn(h DespawnHook) {
	r.hooks = append(r.hooks, h)
}

// Spawn создаёт сущность с новым идентификатором
func (r *Registry) Spawn(kind Kind, name string) *Entity {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}

	s := &r.slots[idx]
	s.generation++
	e := &Entity{
		ID:      ID{Index: idx, Generation: s.generation},
		Kind:    kind,
		Name:    name,
		Visible: true,
	}
	s.entity = e
	r.alive++
	return e
}

// Get возвращает живую сущность по дескриптору
func (r *Registry) Get(id ID) (*Entity, bool) {
	if id.IsNil() || int(id.Index) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[id.Index]
	if s.generation != id.Generation || s.entity == nil {
		return nil, false
	}
	return s.entity, true
}

// Lookup возвращает сущность или ErrNotFound
func (r *Registry) Lookup(id ID) (*Entity, error) {
	e, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Alive проверяет, что дескриптор указывает на живую сущность
func (r *Registry) Alive(id ID) bool {
	_, ok := r.Get(id)
	return ok
}

// Len количество живых сущностей
func (r *Registry) Len() int {
	return r.alive
}

// SetParent делает child дочерней сущностью parent
func (r *Registry) SetParent(child, parent ID) error {
	c, err := r.Lookup(child)
	if err != nil {
		return err
	}
	p, err := r.Lookup(parent)
	if err != nil {
		return err
	}
	if !c.Parent.IsNil() {
		r.detach(c)
	}
	c.Parent = parent
	p.Children = append(p.Children, child)
	return nil
}

func (r *Registry) detach(c *Entity) {
	if p, ok := r.Get(c.Parent); ok {
		for i, id := range p.Children {
			if id == c.ID {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				break
			}
		}
	}
	c.Parent = Nil
}

// Despawn удаляет сущность вместе со всеми потомками.
// Возвращает идентификаторы удалённых сущностей; для устаревшего дескриптора пусто.
func (r *Registry) Despawn(id ID) []ID {
	e, ok := r.Get(id)
	if !ok {
		return nil
	}
	r.detach(e)
	var removed []ID
	r.despawnRecursive(e, &removed)
	return removed
}

func (r *Registry) despawnRecursive(e *Entity, removed *[]ID) {
	for _, child := range e.Children {
		if c, ok := r.Get(child); ok {
			r.despawnRecursive(c, removed)
		}
	}
	for _, h := range r.hooks {
		h(e)
	}
	s := &r.slots[e.ID.Index]
	s.entity = nil
	r.free = append(r.free, e.ID.Index)
	r.alive--
	*removed = append(*removed, e.ID)
}

// Each обходит живые сущности в порядке слотов
func (r *Registry) Each(fn func(e *Entity)) {
	for i := range r.slots {
		if e := r.slots[i].entity; e != nil {
			fn(e)
		}
	}
}

// OfKind возвращает живые сущности заданного типа в порядке слотов
func (r *Registry) OfKind(kind Kind) []*Entity {
	var out []*Entity
	r.Each(func(e *Entity) {
		if e.Kind == kind {
			out = append(out, e)
		}
	})
	return out
}

// FindByName ищет первую живую сущность с именем
func (r *Registry) FindByName(name string) (*Entity, bool) {
	for i := range r.slots {
		if e := r.slots[i].entity; e != nil && e.Name == name {
			return e, true
		}
	}
	return nil, false
}
