package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
)

const (
	defaultMaxChars  = 6000
	maxExtractBlocks = 1200
)

// Page is the readable extract of one fetched URL.
type Page struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

type fetchKey struct {
	url      string
	maxChars int
}

// OpenURL fetches a page and returns a trimmed, readable text extract
// suitable for summarization. Extracts are LRU-cached by (url, max_chars).
type OpenURL struct {
	client *http.Client
	cache  *lru.Cache[fetchKey, Page]
}

func NewOpenURL(client *http.Client, cacheSize int) (*OpenURL, error) {
	cache, err := lru.New[fetchKey, Page](cacheSize)
	if err != nil {
		return nil, err
	}
	return &OpenURL{client: client, cache: cache}, nil
}

func (o *OpenURL) Name() string { return "open_url" }

func (o *OpenURL) Description() string {
	return "Open a URL and return a concise text extract for summarization."
}

func (o *OpenURL) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":       map[string]any{"type": "string", "description": "URL to open"},
			"max_chars": map[string]any{"type": "integer", "description": "Extract length cap, default 6000"},
		},
		"required": []string{"url"},
	}
}

func (o *OpenURL) Call(ctx context.Context, args map[string]any) (any, error) {
	pageURL, err := stringArg(args, "url")
	if err != nil {
		return nil, err
	}
	maxChars := intArg(args, "max_chars", defaultMaxChars)

	key := fetchKey{url: pageURL, maxChars: maxChars}
	if page, ok := o.cache.Get(key); ok {
		return map[string]any{"page": page}, nil
	}

	page, err := o.fetch(ctx, pageURL, maxChars)
	if err != nil {
		return nil, err
	}
	o.cache.Add(key, page)
	return map[string]any{"page": page}, nil
}

func (o *OpenURL) fetch(ctx context.Context, pageURL string, maxChars int) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := o.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	page := Page{
		Title: collapseSpace(textContent(findElement(doc, "title"))),
		URL:   pageURL,
		Text:  extractText(doc, maxChars),
	}
	return page, nil
}

// extractText prefers article/main content over the whole body and joins
// the text of heading, paragraph, and list-item elements.
func extractText(doc *html.Node, maxChars int) string {
	root := findElement(doc, "article")
	if root == nil {
		root = findElement(doc, "main")
	}
	if root == nil {
		root = findElement(doc, "body")
	}
	if root == nil {
		root = doc
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(parts) >= maxExtractBlocks {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "h1", "h2", "h3", "p", "li":
				if txt := collapseSpace(textContent(n)); txt != "" {
					parts = append(parts, txt)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	text := strings.Join(parts, " ")
	if runes := []rune(text); len(runes) > maxChars {
		text = string(runes[:maxChars]) + " …"
	}
	return text
}

func findElement(n *html.Node, name string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}
