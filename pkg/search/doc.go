// Package search aggregates the results of a search endpoint across pages.
//
// A Searcher drives a paginated requester one page at a time until the
// configured limit is reached or the provider returns a short page:
//
//	p, _ := client.NewPaginated(client.DefaultConfig(), pagination.State{Limit: 50, MaxPerRequest: 20})
//	s, _ := search.New(p, search.Config{
//	    URL:        "https://api.example.com/v1/search",
//	    ResultsKey: "results",
//	})
//	results, err := s.Search(ctx, "gophers")
//
// Runtime failures end the loop with the results gathered so far. Only
// configuration errors are returned.
//
// Metrics:
//   - remote_search_pages_total: pages requested by searches
//   - remote_search_results: number of results returned per search
package search
