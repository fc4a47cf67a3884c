package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Ultimate Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.meta{display:grid;grid-template-columns:repeat(3,auto);gap:10px;width:max-content}
.sub{display:grid;grid-template-columns:repeat(3,2.2em);gap:2px;padding:4px;border:2px solid #ccc}
.sub.decided{opacity:.6}.sub.metaline{border-color:#d4a017}
.sub form{margin:0}.sub button,.sub span{width:2.2em;height:2.2em;display:block;text-align:center}
.win{background:#ffe58a}.alert{color:#b00}
</style>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Ultimate Tic-Tac-Toe</h1>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board" hx-target="#board" hx-swap="outerHTML"></div>
  {{template "board" .}}
</div>
<p><a href="/">New session</a></p>`))
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `<h1>Ultimate Tic-Tac-Toe</h1>
<form action="/game" method="post">
  <fieldset>
    <legend>Mode</legend>
    <label><input type="radio" name="mode" value="pva" checked> Player vs computer</label>
    <label><input type="radio" name="mode" value="pvp"> Player vs player</label>
  </fieldset>
  <label>X name <input name="xname" placeholder="Player 1"></label>
  <label>O name <input name="oname" placeholder="Player 2"></label>
  <label>Difficulty
    <select name="difficulty">
      {{range .Levels}}<option value="{{.}}"{{if eq . $.Difficulty}} selected{{end}}>{{.}}</option>{{end}}
    </select>
  </label>
  <button>Start</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}<div class="alert">{{.Error}}</div>{{end}}
  <p class="status" data-status="{{.Status}}">{{.Message}}</p>
  <p class="score">{{.XName}} (X): {{.XScore}} &middot; {{.OName}} (O): {{.OScore}}{{if .PvA}} &middot; {{.Difficulty}}{{end}}</p>
  <div class="meta">
  {{range .Subs}}
    <div class="sub{{if .Decided}} decided{{end}}{{if .InMetaLine}} metaline{{end}}" data-board="{{.Index}}" data-outcome="{{.Outcome}}">
    {{range .Cells}}
      {{if .Playable}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/play">
        <input type="hidden" name="b" value="{{.Board}}">
        <input type="hidden" name="c" value="{{.Index}}">
        <button type="submit"></button>
      </form>
      {{else}}
      <span class="{{if .Winning}}win{{end}}">{{.Symbol}}</span>
      {{end}}
    {{end}}
    </div>
  {{end}}
  </div>
  {{if not .Spectator}}
  <div class="controls">
    {{if .TiePending}}
    <form hx-post="/game/{{.ID}}/tie" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/tie">
      <button name="choice" value="draw">Accept draw</button>
      <button name="choice" value="count">Count boards</button>
    </form>
    {{end}}
    <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/reset">
      <button>Reset board</button>
    </form>
    <form hx-post="/game/{{.ID}}/new-match" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/new-match">
      <button>New match</button>
    </form>
    {{if .PvA}}
    <form hx-post="/game/{{.ID}}/difficulty" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{.ID}}/difficulty">
      <select name="difficulty">
        {{range .Levels}}<option value="{{.}}"{{if eq . $.Difficulty}} selected{{end}}>{{.}}</option>{{end}}
      </select>
      <button>Set difficulty</button>
    </form>
    {{end}}
  </div>
  {{end}}
</div>
`

const playerCookie = "player_id"

// ensurePlayerCookie returns the caller's player id, issuing one if absent.
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" {
		return c.Value
	}
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return v
}
