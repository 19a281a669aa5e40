package application

import (
	"strings"

	"identity-gateway/middleware/authz/domain"
)

// Claims consultados, na ordem em que são avaliados.
const (
	ClaimCustomRole    = "custom:role"
	ClaimCustomRoles   = "custom:roles"
	ClaimCognitoGroups = "cognito:groups"
	ClaimRealmAccess   = "realm_access"
	ClaimScope         = "scope"
	ClaimScp           = "scp"
)

var roleReplacer = strings.NewReplacer(" ", "_", "-", "_")

// Extract deriva as authorities de um ClaimSet.
//
// Todos os claims de papel são unidos. Só quando nenhum papel é encontrado
// o claim scope (ou scp) vira SCOPE_<token>; qualquer papel suprime os
// escopos por completo. Valores de tipo inesperado são ignorados.
func Extract(claims domain.ClaimSet) (domain.Authorities, error) {
	if claims == nil {
		return nil, domain.ErrInvalidInput
	}

	roles := domain.NewAuthorities()
	addRole := func(raw string) {
		if a, ok := normalizeRole(raw); ok {
			roles.Add(a)
		}
	}

	if role, ok := claims[ClaimCustomRole].(string); ok {
		addRole(role)
	}
	eachString(claims[ClaimCustomRoles], addRole)
	eachString(claims[ClaimCognitoGroups], addRole)
	if realm, ok := asMap(claims[ClaimRealmAccess]); ok {
		eachString(realm["roles"], addRole)
	}

	if len(roles) > 0 {
		return roles, nil
	}
	return scopeAuthorities(claims), nil
}

func normalizeRole(raw string) (domain.Authority, bool) {
	// só papéis em branco são descartados; espaços nas pontas viram "_"
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	role := roleReplacer.Replace(strings.ToUpper(raw))
	if strings.HasPrefix(role, domain.RolePrefix) {
		return domain.Authority(role), true
	}
	return domain.Authority(domain.RolePrefix + role), true
}

func scopeAuthorities(claims domain.ClaimSet) domain.Authorities {
	out := domain.NewAuthorities()
	raw, ok := claims[ClaimScope]
	if !ok {
		raw = claims[ClaimScp]
	}

	add := func(token string) {
		for _, t := range strings.Fields(token) {
			out.Add(domain.Authority(domain.ScopePrefix + t))
		}
	}
	if s, ok := raw.(string); ok {
		add(s)
		return out
	}
	eachString(raw, add)
	return out
}

// eachString chama fn para cada elemento string de uma sequência.
func eachString(v any, fn func(string)) {
	switch seq := v.(type) {
	case []string:
		for _, s := range seq {
			fn(s)
		}
	case []any:
		for _, item := range seq {
			if s, ok := item.(string); ok {
				fn(s)
			}
		}
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case domain.ClaimSet:
		return m, true
	}
	return nil, false
}
