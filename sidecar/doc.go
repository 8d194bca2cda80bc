// Package sidecar stores merge results as plain files: one content file per
// preview plus one JSON metadata file ("sidecar") per record holding
// everything needed to rerender and send the record later.
//
// For a record named "ada" rendered by the markdown engine the store holds
//
//	ada__markdown__Preview-Markdown.md
//	ada__markdown__Preview-HTML.html
//	ada-metadata.json
//
// Preview content lives only in the content files; the sidecar lists them by
// filename in the same order as the previews. After a record is sent or
// uploaded its files move to sent/ or drafts/ and are no longer listed.
package sidecar
