package main

import (
	"fmt"
	"html"
	"net/http"
)

// Upstream "burro" para validar o gateway: mostra o que chegou, inclusive a
// identidade repassada nos headers X-Authenticated-*.
func main() {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-Authenticated-User")
		authorities := r.Header.Get("X-Authenticated-Authorities")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Tela do Sistema</h1><p>%s %s</p><p>usuário: %q</p><p>authorities: %q</p>",
			r.Method, html.EscapeString(r.URL.Path), html.EscapeString(user), html.EscapeString(authorities))
		fmt.Printf("Log: %s %s user=%q authorities=%q xff=%q\n",
			r.Method, r.URL.Path, user, authorities, r.Header.Get("X-Forwarded-For"))
	})
	fmt.Println("Servidor rodando em http://localhost:8081")
	err := http.ListenAndServe(":8081", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}
