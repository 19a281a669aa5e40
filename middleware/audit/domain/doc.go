// Package domain define o modelo de eventos de segurança, o contrato do
// store append-only e os erros da auditoria.
package domain
