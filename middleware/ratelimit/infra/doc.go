// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - FixedWindowLimiter: janela fixa por cliente em memória (sync.Map + atômicos)
//   - RedisLimiter: a mesma janela fixa compartilhada entre instâncias via Redis
//   - *StatsStore: estatísticas do gate em memória, Redis ou Prometheus
package infra
