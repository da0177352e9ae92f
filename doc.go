// Package vecsql provides a Go client for vector search over a
// MySQL-compatible relational engine with vector and full-text
// indexes.
//
// Records live in per-collection tables with a binary id, a document,
// JSON metadata and a vector column. Collections are addressed through
// a shared catalog table; tables created by earlier tooling without a
// catalog entry are still found by direct inspection.
//
//	client, _ := vecsql.New(ctx, vecsql.WithDSN("user:pass@tcp(localhost:3306)/vectors"))
//	col, _ := client.CreateCollection(ctx, "articles",
//	    vecsql.WithDimension(768),
//	    vecsql.WithDistance(vecsql.DistanceCosine),
//	)
//	_ = col.Add(ctx, vecsql.AddParams{
//	    IDs:        []string{"a1"},
//	    Documents:  []string{"vector search over sql"},
//	    Embeddings: [][]float32{vec},
//	})
//	hits, _ := col.Query(ctx, vecsql.QueryParams{
//	    QueryEmbeddings: [][]float32{vec},
//	    NResults:        5,
//	})
//
// Hybrid search fuses full-text relevance with vector proximity. The
// server generates the fused query from a JSON specification; the
// generated SQL is validated client-side before execution, and engines
// without the generator fall back to client-side rank fusion.
package vecsql
