package domain

// ClaimSet são os claims de um token já verificado (assinatura e expiração).
//
// Valores chegam como string, bool, número, mapa aninhado ou sequência.
// ClaimSet nil representa token ausente.
type ClaimSet map[string]any

// String devolve o claim quando ele existe e é string não vazia.
func (c ClaimSet) String(name string) (string, bool) {
	v, ok := c[name].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Principal é a identidade autenticada de uma requisição.
type Principal struct {
	// Name é o nome genérico do principal (normalmente o claim sub).
	Name        string
	Claims      ClaimSet
	Authorities Authorities
	// RemoteAddr é o endereço de origem observado na conexão.
	RemoteAddr string
}
