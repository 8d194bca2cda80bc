// Package mailer assembles and delivers the emails produced by a merge run.
//
// A Sender is the transport (see the smtp, resend and graph subpackages).
// Mailer wraps a Sender, validates addresses and derives the plain text
// alternative from the HTML body:
//
//	m := mailer.New(smtpSender)
//	err := m.SendMail(ctx,
//		mailer.FromLine("Events", "events@example.com"),
//		[]string{"ada@example.com"},
//		"Your invite",
//		html,
//		attachments,
//		mailer.Recipients{CC: cc, BCC: bcc},
//	)
//
// Renderer expands markdown templates with optional YAML frontmatter through
// text/template, converts them with goldmark and wraps the result in an HTML
// layout:
//
//	r := mailer.NewRenderer(os.DirFS("templates"), mailer.WithLayouts(os.DirFS("layouts")))
//	res, err := r.Render("wrapper.html", "invite.md", record)
//	// res.Markdown is the editable expansion, res.HTML the final body.
//
// Layouts receive {{.Content}} (the converted body) and {{.Metadata}} (the
// template frontmatter). Markdown supports [!button|Label](https://...) for
// call-to-action buttons that survive Outlook.
package mailer
