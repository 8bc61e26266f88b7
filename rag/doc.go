// Package rag answers questions over a collection's documents.
//
// Service.AnswerQuestion embeds the question, retrieves the nearest chunks
// tagged with the collection, builds a grounded prompt and post-processes the
// generated answer. It never returns an error: every failure is reported in
// the returned Answer.
//
// Basic usage:
//
//	svc, err := rag.NewService(records, embedder, idx, generator)
//	if err != nil {
//		return err
//	}
//	ans := svc.AnswerQuestion(ctx, collectionID, "What is the main result?", 5)
//	if !ans.Success {
//		fmt.Println(ans.Error)
//	}
//	fmt.Println(ans.Answer)
package rag
