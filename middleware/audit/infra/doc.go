// Package infra contém implementações concretas da auditoria.
//
// Inclui:
//   - MemoryStore: store em memória (dev/testes)
//   - PostgresStore: store em PostgreSQL via pgx/v5
//   - SQLiteStore: store em SQLite via database/sql + modernc.org/sqlite
//   - NewChanPool: pool de vagas baseado em channel
package infra
