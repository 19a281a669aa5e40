package domain

import (
	"sort"
	"strings"
)

const (
	RolePrefix  = "ROLE_"
	ScopePrefix = "SCOPE_"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindRole
	KindScope
)

// Authority é um rótulo de permissão já normalizado (ROLE_X ou SCOPE_x).
type Authority string

func (a Authority) Kind() Kind {
	switch {
	case strings.HasPrefix(string(a), RolePrefix):
		return KindRole
	case strings.HasPrefix(string(a), ScopePrefix):
		return KindScope
	default:
		return KindUnknown
	}
}

// Authorities é um conjunto; a ordem não tem significado.
type Authorities map[Authority]struct{}

func NewAuthorities(values ...Authority) Authorities {
	set := make(Authorities, len(values))
	for _, v := range values {
		set.Add(v)
	}
	return set
}

func (s Authorities) Add(a Authority) { s[a] = struct{}{} }

func (s Authorities) Has(a Authority) bool {
	_, ok := s[a]
	return ok
}

// HasAny informa se o conjunto contém pelo menos uma das authorities.
func (s Authorities) HasAny(required ...Authority) bool {
	for _, a := range required {
		if s.Has(a) {
			return true
		}
	}
	return false
}

// Strings devolve os valores ordenados, para logs e respostas estáveis.
func (s Authorities) Strings() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, string(a))
	}
	sort.Strings(out)
	return out
}

func (s Authorities) String() string { return strings.Join(s.Strings(), ", ") }
