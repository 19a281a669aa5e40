// Package domain define os tipos de identidade e autorização: claims já
// verificados, authorities normalizadas e o principal autenticado.
//
// Não depende de net/http nem de biblioteca de JWT.
package domain
