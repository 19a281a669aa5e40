// Package authz fornece os middlewares HTTP (net/http) de autenticação e
// autorização por authorities.
//
// Visão geral (camadas):
//
//   - domain: claims, authorities, principal e erros
//   - application: extração de authorities a partir dos claims
//   - infra: verificação de token (JWT HS256)
//   - authz (este pacote): bearer token, principal no contexto, respostas 401/403
//
// Fluxo no gateway:
//
//  1. Lê o header Authorization: Bearer <token>
//  2. Verifica o token (TokenVerifier) e extrai as authorities
//  3. Guarda o Principal no contexto e registra o evento de auditoria
//  4. RequireAuthority bloqueia com 403 quem não tem a authority exigida
package authz
