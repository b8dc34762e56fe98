package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/models"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · Ala2 Club de Vuelo</title>
</head>
<body>
<header><h1>Ala2 Club de Vuelo</h1></header>
<main>{{template "content" .}}</main>
</body>
</html>{{end}}`

var (
	signInTmpl = template.Must(template.Must(template.New("signin").Parse(layout)).Parse(`{{define "content"}}
<h2>Iniciar sesión</h2>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/api/auth/credentials">
  {{.CSRFField}}
  <input type="hidden" name="callbackUrl" value="{{.CallbackURL}}">
  <label>Email <input type="email" name="email" required></label>
  <label>Contraseña <input type="password" name="password" required></label>
  <button type="submit">Entrar</button>
</form>
{{if .GoogleEnabled}}<p><a href="/api/auth/google">Continuar con Google</a></p>{{end}}
{{end}}`))

	errorTmpl = template.Must(template.Must(template.New("error").Parse(layout)).Parse(`{{define "content"}}
<h2>Error de autenticación</h2>
<p>{{.Error}}</p>
<p><a href="/auth/signin">Volver a intentar</a></p>
{{end}}`))

	homeTmpl = template.Must(template.Must(template.New("home").Parse(layout)).Parse(`{{define "content"}}
<h2>Sistema de Reservas del Club de Vuelo</h2>
<p>Hola, {{.User.Name}}.</p>
<ul>
  <li><a href="/api/reservations">Reservas</a></li>
  <li><a href="/api/aircraft">Aviones</a></li>
</ul>
<form method="post" action="/api/auth/signout">
  {{.CSRFField}}
  <button type="submit">Cerrar sesión</button>
</form>
{{end}}`))
)

var signInErrors = map[string]string{
	"CredentialsSignin": "Email o contraseña incorrectos.",
	"SessionRequired":   "Inicia sesión para continuar.",
}

var authErrors = map[string]string{
	"Configuration": "El proveedor de autenticación no está configurado.",
	"AccessDenied":  "Acceso denegado.",
	"OAuthCallback": "No se pudo completar el inicio de sesión con el proveedor externo.",
	"Default":       "No se pudo iniciar sesión.",
}

type page struct {
	Title         string
	Error         string
	CallbackURL   string
	GoogleEnabled bool
	CSRFField     template.HTML
	User          *models.Principal
}

func render(w http.ResponseWriter, status int, tmpl *template.Template, data page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("template_error", "template", tmpl.Name(), "error", err)
	}
}

// SignInPage handles GET /auth/signin
func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := page{
		Title:         "Iniciar sesión",
		CallbackURL:   safeCallback(q.Get("callbackUrl")),
		GoogleEnabled: h.google != nil,
		CSRFField:     csrf.TemplateField(r),
	}
	if code := q.Get("error"); code != "" {
		data.Error = signInErrors[code]
		if data.Error == "" {
			data.Error = authErrors["Default"]
		}
	}
	render(w, http.StatusOK, signInTmpl, data)
}

// ErrorPage handles GET /auth/error
func (h *AuthHandler) ErrorPage(w http.ResponseWriter, r *http.Request) {
	msg, ok := authErrors[r.URL.Query().Get("error")]
	if !ok {
		msg = authErrors["Default"]
	}
	render(w, http.StatusOK, errorTmpl, page{Title: "Error", Error: msg})
}

// Home handles GET /. RequirePage guarantees a principal.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.SignInPath, http.StatusFound)
		return
	}
	render(w, http.StatusOK, homeTmpl, page{
		Title:     "Inicio",
		User:      p,
		CSRFField: csrf.TemplateField(r),
	})
}
