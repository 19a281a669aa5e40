// Package infra contém os verificadores de token concretos.
//
// A verificação criptográfica fica com github.com/golang-jwt/jwt/v5; aqui só
// configuramos o parser e traduzimos erros para os sentinelas do domínio.
package infra
