// Package vecmatch embeds the similarity matching engine in a Go program.
//
// The client reads the corpus from a PostgreSQL (pgvector) or SQLite database
// once, then answers keyword searches in memory. Reconciliation and catalog
// population run against the same database.
//
//	client, _ := vecmatch.New(ctx,
//	    vecmatch.WithDatabase("postgres", dsn),
//	    vecmatch.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	matches, _ := client.Search(ctx, "paracetamol 500mg", "ibuprofen")
//	for _, m := range matches {
//	    for _, c := range m.Candidates {
//	        fmt.Println(m.Text, c.Rank, c.Name, c.Similarity)
//	    }
//	}
//
//	sum, _ := client.Reconcile(ctx, func(_ context.Context, batch []vecmatch.Match) error {
//	    return save(batch)
//	})
package vecmatch
