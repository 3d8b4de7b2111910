// Package meteora is the composition root of the Meteora note engine.
//
// It connects the core domain (notes, ranking, filtering and the link graph)
// with the storage adapters using the Hexagonal Architecture pattern.
//
// Notes are ranked by an effective score built from their priority, the
// urgency of their deadline and the progress of their checklist. The visible
// list is the ranked order filtered by tags, text and completion.
//
// Storage adapters:
//
//   - vault (default): one Markdown file per note with YAML frontmatter.
//   - snapshot: a single JSON document with a rotated backup.
//   - sqlite, postgres: relational tables.
//   - s3: a JSON object in a bucket.
//
// Usage:
//
//	svc, err := meteora.New("./notes",
//		meteora.WithAdapter(meteora.AdapterSQLite),
//		meteora.WithLogger(logger),
//	)
//
//	ranked := svc.View(meteora.Query{Tags: []string{"work"}, HideDone: true})
package meteora
