// Package translate maps member accesses and method calls written against
// model types onto queryir nodes.
//
// Translation is an ordered rule set. A registry tries its plugins first,
// then its built-in rules, and returns the first non-nil result. A nil
// result means no rule recognized the reference and the caller evaluates
// it client-side.
package translate

import (
	"sync"

	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/typemap"
)

// Member identifies a property or field read, e.g. DateTime.UtcNow.
type Member struct {
	DeclaringType typemap.Type
	Name          string
}

// Method identifies a method call, e.g. Equals.
type Method struct {
	DeclaringType typemap.Type
	Name          string
}

// MemberTranslator translates a member access. instance is nil for static
// members.
type MemberTranslator interface {
	Translate(instance queryir.Expr, member Member, returnType typemap.Type) queryir.Expr
}

// MethodTranslator translates a method call. instance is nil for static
// calls.
type MethodTranslator interface {
	Translate(instance queryir.Expr, method Method, args []queryir.Expr) queryir.Expr
}

// MemberTranslatorFunc adapts a function to MemberTranslator.
type MemberTranslatorFunc func(instance queryir.Expr, member Member, returnType typemap.Type) queryir.Expr

func (fn MemberTranslatorFunc) Translate(instance queryir.Expr, member Member, returnType typemap.Type) queryir.Expr {
	return fn(instance, member, returnType)
}

// MethodTranslatorFunc adapts a function to MethodTranslator.
type MethodTranslatorFunc func(instance queryir.Expr, method Method, args []queryir.Expr) queryir.Expr

func (fn MethodTranslatorFunc) Translate(instance queryir.Expr, method Method, args []queryir.Expr) queryir.Expr {
	return fn(instance, method, args)
}

// MemberRegistry is the ordered member rule set. Lookups are safe for
// concurrent use with AddPlugins.
type MemberRegistry struct {
	mu       sync.RWMutex
	plugins  []MemberTranslator
	builtins []MemberTranslator
}

// NewMemberRegistry creates a registry with the built-in member rules.
func NewMemberRegistry(f *queryir.Factory) *MemberRegistry {
	return &MemberRegistry{
		builtins: []MemberTranslator{
			&StringMemberTranslator{factory: f},
			&DateTimeMemberTranslator{factory: f},
		},
	}
}

// AddPlugins appends translators that run before the built-ins.
func (r *MemberRegistry) AddPlugins(ts ...MemberTranslator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, ts...)
}

// Translate returns the first non-nil translation, or nil.
func (r *MemberRegistry) Translate(instance queryir.Expr, member Member, returnType typemap.Type) queryir.Expr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.plugins {
		if e := t.Translate(instance, member, returnType); e != nil {
			return e
		}
	}
	for _, t := range r.builtins {
		if e := t.Translate(instance, member, returnType); e != nil {
			return e
		}
	}
	return nil
}

// MethodRegistry is the ordered method rule set.
type MethodRegistry struct {
	mu       sync.RWMutex
	plugins  []MethodTranslator
	builtins []MethodTranslator
}

// NewMethodRegistry creates a registry with the built-in method rules.
func NewMethodRegistry(f *queryir.Factory) *MethodRegistry {
	return &MethodRegistry{
		builtins: []MethodTranslator{
			&EqualsTranslator{factory: f},
			&StringMethodTranslator{factory: f},
		},
	}
}

// AddPlugins appends translators that run before the built-ins.
func (r *MethodRegistry) AddPlugins(ts ...MethodTranslator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, ts...)
}

// Translate returns the first non-nil translation, or nil.
func (r *MethodRegistry) Translate(instance queryir.Expr, method Method, args []queryir.Expr) queryir.Expr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.plugins {
		if e := t.Translate(instance, method, args); e != nil {
			return e
		}
	}
	for _, t := range r.builtins {
		if e := t.Translate(instance, method, args); e != nil {
			return e
		}
	}
	return nil
}
