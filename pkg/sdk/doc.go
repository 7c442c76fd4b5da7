// Package reviewdex is a Go client for the reviewdex review question-answering API.
//
//	client, _ := reviewdex.New("http://localhost:8080", reviewdex.WithAPIKey(key))
//	rep, _ := client.Ingest(ctx, reviewdex.IngestRequest{Place: mapsURL, Count: 50})
//	ans, _ := client.Chat(ctx, reviewdex.ChatRequest{
//	    TenantKey: rep.TenantKey,
//	    Question:  "Is the food worth the wait?",
//	})
//
// Errors returned by the server unwrap to the sentinel errors of this package,
// so callers can branch with errors.Is:
//
//	if errors.Is(err, reviewdex.ErrNotFound) { ... }
package reviewdex
