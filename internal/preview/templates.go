package preview

import (
	"html/template"
	"strings"
)

var funcs = template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}

const pageHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>mailmerge preview</title>
<style>body{font-family:sans-serif;margin:24px}table{border-collapse:collapse}td,th{padding:4px 12px;border-bottom:1px solid #ddd;text-align:left}.body{border:1px solid #ccc;padding:16px;margin-top:16px}</style>
</head><body>`

var indexTemplate = template.Must(template.New("index").Funcs(funcs).Parse(pageHead + `
<h1>{{len .}} pending email(s)</h1>
<table>
<tr><th>Name</th><th>To</th><th>Subject</th><th>Attachments</th></tr>
{{- range .}}
<tr><td><a href="/emails/{{.Name}}">{{.Name}}</a></td><td>{{join .To}}</td><td>{{.Subject}}</td><td>{{len .Attachments}}</td></tr>
{{- end}}
</table>
</body></html>`))

var emailTemplate = template.Must(template.New("email").Funcs(funcs).Parse(pageHead + `
<p><a href="/">&larr; all emails</a></p>
<h1>{{.Subject}}</h1>
<dl>
<dt>To</dt><dd>{{join .To}}</dd>
{{- with .CC}}<dt>CC</dt><dd>{{join .}}</dd>{{end}}
{{- with .BCC}}<dt>BCC</dt><dd>{{join .}}</dd>{{end}}
<dt>Engine</dt><dd>{{.Engine}}</dd>
{{- with .Attachments}}<dt>Attachments</dt><dd>{{join .}}</dd>{{end}}
</dl>
<div class="body">{{.Body}}</div>
</body></html>`))
