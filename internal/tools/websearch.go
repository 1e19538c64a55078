package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

const searchEndpoint = "https://duckduckgo.com/html/"

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type searchKey struct {
	query string
	k     int
}

// WebSearch scrapes DuckDuckGo's HTML results page. Results are cached in
// an injected LRU so repeated queries within one process avoid the network.
type WebSearch struct {
	client *http.Client
	cache  *lru.Cache[searchKey, []SearchResult]
}

// NewWebSearch builds the search tool. The HTTP client supplies the
// wall-clock bound on each call.
func NewWebSearch(client *http.Client, cacheSize int) (*WebSearch, error) {
	cache, err := lru.New[searchKey, []SearchResult](cacheSize)
	if err != nil {
		return nil, err
	}
	return &WebSearch{client: client, cache: cache}, nil
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Description() string {
	return "Search the web for recent or factual information and return the top results."
}

func (w *WebSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
			"k":     map[string]any{"type": "integer", "description": "Number of results, default 5"},
		},
		"required": []string{"query"},
	}
}

func (w *WebSearch) Call(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	k := intArg(args, "k", 5)

	key := searchKey{query: query, k: k}
	if results, ok := w.cache.Get(key); ok {
		return searchPayload(results), nil
	}

	results, err := w.search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	w.cache.Add(key, results)
	return searchPayload(results), nil
}

func searchPayload(results []SearchResult) map[string]any {
	return map[string]any{"results": results, "source": "duckduckgo_html"}
}

func (w *WebSearch) search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	return parseSearchResults(doc, k), nil
}

// parseSearchResults walks the document for div.result blocks and pulls
// the a.result__a link plus the .result__snippet text out of each.
func parseSearchResults(doc *html.Node, k int) []SearchResult {
	results := []SearchResult{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= k {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if res, ok := parseResultBlock(n); ok {
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResultBlock(block *html.Node) (SearchResult, bool) {
	link := findByClass(block, "a", "result__a")
	if link == nil {
		return SearchResult{}, false
	}
	res := SearchResult{
		Title: collapseSpace(textContent(link)),
		URL:   unwrapRedirect(attr(link, "href")),
	}
	if snippet := findByClass(block, "", "result__snippet"); snippet != nil {
		res.Snippet = collapseSpace(textContent(snippet))
	}
	return res, true
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=<target> indirection.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

// findByClass returns the first descendant with the given class, optionally
// restricted to one element name.
func findByClass(n *html.Node, element, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (element == "" || c.Data == element) && hasClass(c, class) {
			return c
		}
		if found := findByClass(c, element, class); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
