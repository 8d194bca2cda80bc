package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// scaffold is the workspace created by init. Existing files are kept.
var scaffold = []struct {
	path    string
	content string
}{
	{"data/data.csv", "to,subject,name,attachment\nada@example.com,Welcome aboard,Ada,\n"},
	{"templates/template.md", `---
title: Welcome
---
Hello {{.name}},

Thanks for joining. Reply to this email if you have any questions.
`},
	{"templates/wrapper.html", `<!DOCTYPE html>
<html>
<head><meta charset="utf-8">{{with .Metadata.title}}<title>{{.}}</title>{{end}}</head>
<body style="font-family:Arial,Helvetica,sans-serif;font-size:14px;">
{{.Content}}
</body>
</html>
`},
	{"templates/template.html", `<p>Hello {{.name}},</p>
<p>Thanks for joining.</p>
`},
	{".env.example", `# SMTP transport
SMTP_HOST=smtp-mail.outlook.com
SMTP_PORT=587
SMTP_USERNAME=
SMTP_PASSWORD=
MAILMERGE_SENDER_EMAIL=
MAILMERGE_SENDER_NAME=

# Resend transport
RESEND_API_KEY=

# Microsoft Graph drafts
GRAPH_TENANT_ID=
GRAPH_CLIENT_ID=
GRAPH_CLIENT_SECRET=
GRAPH_MAILBOX=

# Postgres source
MAILMERGE_DATABASE_URL=
`},
}

func (a *App) runInit(_ context.Context, args []string) error {
	fset := a.newFlagSet("init")
	rest, err := a.parse(fset, args, -1)
	if err != nil {
		return err
	}
	root := "."
	switch len(rest) {
	case 0:
	case 1:
		root = rest[0]
	default:
		return fmt.Errorf("%w: init takes at most one directory", ErrUsage)
	}

	if err := os.MkdirAll(filepath.Join(root, DefaultOutput), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, f := range scaffold {
		p := filepath.Join(root, filepath.FromSlash(f.path))
		if _, err := os.Stat(p); err == nil {
			fmt.Fprintf(a.Stdout, "exists  %s\n", p)
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		if err := os.WriteFile(p, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		fmt.Fprintf(a.Stdout, "created %s\n", p)
	}
	return nil
}
