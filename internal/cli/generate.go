package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/engines/htmltmpl"
	"github.com/dmitrymomot/mailmerge/engines/markdown"
	"github.com/dmitrymomot/mailmerge/pkg/db"
	"github.com/dmitrymomot/mailmerge/pkg/storage"
	"github.com/dmitrymomot/mailmerge/sidecar"
	"github.com/dmitrymomot/mailmerge/sources"
)

// DefaultOutput is where generate stores previews unless told otherwise.
const DefaultOutput = "output/previews"

type generateFlags struct {
	engine      string
	template    string
	layout      string
	source      string
	data        string
	query       string
	output      string
	name        string
	namer       string
	attachments listFlag
	attachKeys  listFlag
	maps        listFlag
	cc          bool
	bcc         bool
	yes         bool
	concurrency int
}

func (a *App) runGenerate(ctx context.Context, args []string) error {
	var f generateFlags
	fs := a.newFlagSet("generate")
	fs.StringVar(&f.engine, "engine", markdown.Name, "template engine: "+strings.Join(a.Registry.Names(), "|"))
	fs.StringVar(&f.template, "template", "", "template file (default templates/template.md or templates/template.html)")
	fs.StringVar(&f.layout, "layout", "", "HTML layout wrapping markdown output")
	fs.StringVar(&f.source, "source", "csv", "record source: csv|json|postgres")
	fs.StringVar(&f.data, "data", "", "data file for csv and json sources (default data/data.<source>)")
	fs.StringVar(&f.query, "query", "", "SQL query for the postgres source")
	fs.StringVar(&f.output, "output", DefaultOutput, "preview location, a directory or s3://bucket/prefix")
	fs.StringVar(&f.name, "name", "", "run name, stored as a subdirectory of the output")
	fs.StringVar(&f.namer, "namer", "", "file name pattern, e.g. {{.to}}")
	fs.Var(&f.attachments, "attachment", "file attached to every email (repeatable)")
	fs.Var(&f.attachKeys, "attachment-key", "column holding attachment paths (repeatable)")
	fs.Var(&f.maps, "map", "column mapping header=field (repeatable)")
	fs.BoolVar(&f.cc, "cc", false, "enable the cc column")
	fs.BoolVar(&f.bcc, "bcc", false, "enable the bcc column")
	fs.BoolVar(&f.yes, "yes", false, "never prompt, use defaults")
	fs.IntVar(&f.concurrency, "concurrency", 0, "parallel renders (default GOMAXPROCS)")
	if _, err := a.parse(fs, args, 0); err != nil {
		return err
	}

	info := engineInfo(f)
	engine, err := a.Registry.New(info.Name, info.Options)
	if err != nil {
		return err
	}

	mapping, err := parseMappings(f.maps)
	if err != nil {
		return err
	}

	src, closeSrc, err := a.openSource(ctx, f)
	if err != nil {
		return err
	}
	defer closeSrc()

	location, err := a.runLocation(f)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, location, a.cfg.Storage)
	if err != nil {
		return err
	}

	backendOpts := []sidecar.Option{sidecar.WithLogger(a.log)}
	switch {
	case f.namer != "":
		n, err := sidecar.TemplateNamer(f.namer)
		if err != nil {
			return err
		}
		backendOpts = append(backendOpts, sidecar.WithNamer(n))
	case f.yes:
		n, err := sidecar.TemplateNamer(defaultNamer)
		if err != nil {
			return err
		}
		backendOpts = append(backendOpts, sidecar.WithNamer(n))
	default:
		backendOpts = append(backendOpts, sidecar.WithDynamicNamer(a.prompt.Namer))
	}

	opts := mailmerge.GenerateOptions{
		Engine:      engine,
		EngineInfo:  info,
		Source:      src,
		Storage:     sidecar.New(store, backendOpts...),
		Mapping:     mapping,
		Attachments: f.attachments,
		Features:    mailmerge.Features{CC: f.cc, BCC: f.bcc},
		Concurrency: f.concurrency,
		Logger:      a.log,
	}
	if len(f.attachKeys) > 0 {
		opts.AttachmentKeys = f.attachKeys
	} else if f.yes {
		opts.AttachmentKeys = []string{}
	} else {
		opts.AttachmentKeysResolver = a.prompt.AttachmentKeys
	}
	if mapping == nil && !f.yes {
		opts.MappingResolver = a.prompt.MapFields
	}

	report, err := mailmerge.Generate(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Stdout, "Generated %d preview(s) in %s, skipped %d record(s).\n",
		report.Processed, location, report.Skipped)
	return nil
}

// engineInfo derives the persisted engine options from the flags.
func engineInfo(f generateFlags) mailmerge.EngineInfo {
	info := mailmerge.EngineInfo{Name: f.engine, Options: mailmerge.EngineOptions{}}
	switch f.engine {
	case markdown.Name:
		info.Options[markdown.OptionTemplatePath] = cmpDefault(f.template, "templates/template.md")
		if f.layout != "" {
			info.Options[markdown.OptionRootHTMLTemplate] = f.layout
		}
	case htmltmpl.Name:
		info.Options[htmltmpl.OptionTemplatePath] = cmpDefault(f.template, "templates/template.html")
	default:
		if f.template != "" {
			info.Options[markdown.OptionTemplatePath] = f.template
		}
	}
	return info
}

// parseMappings turns header=field pairs into a Mapping. No pairs yields nil.
func parseMappings(pairs []string) (mailmerge.Mapping, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(mailmerge.Mapping, len(pairs))
	for _, p := range pairs {
		header, field, ok := strings.Cut(p, "=")
		header, field = strings.TrimSpace(header), strings.TrimSpace(field)
		if !ok || header == "" || field == "" {
			return nil, fmt.Errorf("%w: mapping %q is not header=field", ErrUsage, p)
		}
		m[header] = field
	}
	return m, nil
}

func (a *App) openSource(ctx context.Context, f generateFlags) (mailmerge.DataSource, func(), error) {
	noop := func() {}
	switch f.source {
	case "csv":
		return sources.NewCSV(cmpDefault(f.data, "data/data.csv"), a.log), noop, nil
	case "json":
		return sources.NewJSON(cmpDefault(f.data, "data/data.json"), a.log), noop, nil
	case "postgres":
		if f.query == "" {
			return nil, noop, fmt.Errorf("%w: --query is required for the postgres source", ErrUsage)
		}
		pool, err := db.Connect(ctx, a.cfg.DB)
		if err != nil {
			return nil, noop, err
		}
		return sources.NewPostgres(pool, a.log, f.query), pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown source %q", ErrUsage, f.source)
	}
}

// runLocation joins the output location with the run name, asking for one
// when prompting is allowed.
func (a *App) runLocation(f generateFlags) (string, error) {
	name := f.name
	if name == "" && !f.yes {
		var err error
		name, err = a.prompt.Ask("Run name", time.Now().Format("2006-01-02-1504"))
		if err != nil {
			return "", err
		}
	}
	if name == "" {
		return f.output, nil
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: run name %q must not contain path separators", ErrUsage, name)
	}
	return strings.TrimRight(f.output, "/") + "/" + name, nil
}
