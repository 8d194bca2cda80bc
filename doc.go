// Package mailmerge renders one email per record of a data source and
// delivers them in a separate, resumable step.
//
// A run is split into stages that share nothing but a [StorageBackend]:
//
//   - [Generate] loads records from a [DataSource], maps headers to template
//     fields, validates each record, renders previews with a [TemplateEngine]
//     and stores the batch.
//   - [Rerender] rebuilds stored previews after the user edited them.
//   - [Send] and [UploadDrafts] derive the final HTML of every stored result,
//     ask for confirmation and dispatch one message at a time.
//
// # Quick Start
//
//	backend := sidecar.New(store, sidecar.WithNamer(namer))
//
//	report, err := mailmerge.Generate(ctx, mailmerge.GenerateOptions{
//	    Engine:     engine,
//	    EngineInfo: mailmerge.EngineInfo{Name: markdown.Name, Options: opts},
//	    Source:     sources.NewCSV("data/people.csv"),
//	    Storage:    backend,
//	    Logger:     log,
//	})
//
//	_, err = mailmerge.Send(ctx, backend, mailmerge.SendOptions{
//	    DispatchOptions: mailmerge.DispatchOptions{
//	        Registry:  engines.Default(),
//	        Transport: mailer.New(smtpSender),
//	        Confirmer: prompt,
//	    },
//	})
//
// # Records
//
// A [RawRecord] is keyed by source column. [Mapping.Project] turns it into a
// [MappedRecord] keyed by template field. The reserved fields "to" and
// "subject", plus "cc" and "bcc" when enabled through [Features], are mapped
// alongside the template's own fields. Address fields hold whitespace
// separated lists.
//
// # Errors
//
// Configuration and load errors abort a run. Records that fail validation or
// rendering are logged and skipped. A transport error stops dispatch; messages
// already sent stay sent and their post-actions have run.
package mailmerge
