// Package ratelimit fornece o gate HTTP (net/http) que aplica rate limit aos
// endpoints de autenticação.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: caso de uso (decisão allow/deny + retry-after) sem net/http
//   - infra: janela fixa em memória/Redis e estatísticas
//   - ratelimit (este pacote): middleware HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Verifica se o path é limitado (token/login/authenticate por padrão)
//  2. Extrai a chave do cliente (header/XFF/X-Real-IP/RemoteAddr)
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 com Retry-After e corpo JSON
//  5. Se permitido, chama o próximo handler
package ratelimit
