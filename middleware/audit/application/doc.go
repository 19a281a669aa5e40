// Package application contém o Recorder de eventos de segurança.
//
// As escritas são fail-open: qualquer falha do store é registrada em log e
// engolida, para que login e autorização nunca dependam da saúde do store.
package application
