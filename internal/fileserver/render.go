package fileserver

import (
	"html/template"
	"io"
)

// Index is the data rendered into a directory index page.
type Index struct {
	// Path is the display path, "/" for the root and "/a/b/" below it.
	Path string
	// Parent is the link target of the "../" row; empty at the root.
	Parent  string
	Entries []Entry
}

// The HTML 3.2 doctype keeps the page readable by legacy index viewers.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN">
<html>
<head>
<title>Index of {{.Path}}</title>
<style>
table { border-collapse: collapse; }
td { padding: 2px 20px 2px 2px; }
th { padding: 2px 20px 2px 2px; text-align: left; }
</style>
</head>
<body>
<h1>Index of {{.Path}}</h1>
<table>
<tr><th>Name</th><th>Last modified</th><th>Size</th></tr>
<tr><th colspan="3"><hr></th></tr>
{{if .Parent}}<tr><td><a href="{{.Parent}}">../</a></td><td>&nbsp;</td><td align="right">-</td></tr>
{{end}}{{range .Entries}}<tr><td><a href="{{.Link}}">{{.Name}}{{if .IsDir}}/{{end}}</a></td><td align="right">{{.Modified}}</td><td align="right">{{.Size}}</td></tr>
{{end}}<tr><th colspan="3"><hr></th></tr>
</table>
</body>
</html>
`))

// RenderIndex writes the directory index page for idx to w.
func RenderIndex(w io.Writer, idx Index) error {
	return indexTemplate.Execute(w, idx)
}
