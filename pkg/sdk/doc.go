// Package kbquery embeds the kbquery retrieval path in another Go program.
//
// The client talks to the same Redis or Valkey index the kbquery CLI and HTTP
// API read, with the caller supplying the embedding provider:
//
//	client, err := kbquery.New(ctx,
//	    kbquery.WithRedis("localhost:6379", ""),
//	    kbquery.WithEmbedder(myEmbedder),
//	    kbquery.WithCollection("hr_onboarding_kb"),
//	)
//	defer client.Close()
//
//	results, err := client.Query(ctx, "Who is joining the HR department?",
//	    kbquery.TopK(3),
//	    kbquery.Where("doc_type", "employee_record"),
//	)
//
// Errors wrap the sentinels in errors.go; use errors.Is to classify them.
package kbquery
