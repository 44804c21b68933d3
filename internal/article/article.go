package article

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NotFound is returned in place of article text when the page has no
// recognizable article container. It is not an error.
const NotFound = "Article body not found"

const MaxBodyBytes = 10 << 20

// ClassPrefixes identify the article container's class attribute.
var ClassPrefixes = []string{"article-body", "article__content"}

var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language": "en-US,en;q=0.9",
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36",
}

type Extractor struct {
	http *http.Client
}

func NewExtractor(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{}
	}
	return &Extractor{http: client}
}

// Extract fetches url and returns the text of its article container, or
// NotFound. Transport failures are returned as errors; there is no retry.
func (e *Extractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("article: %s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	log.Printf("article: fetched %s (%s)", url, humanize.Bytes(uint64(len(body))))

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", url, err)
	}

	return ExtractFromNode(doc), nil
}

// ExtractFromNode finds the first article container under doc and returns
// its text, or NotFound.
func ExtractFromNode(doc *html.Node) string {
	n := findContainer(doc)
	if n == nil {
		return NotFound
	}
	return visibleText(n)
}

func findContainer(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Div {
		if class, ok := attr(n, "class"); ok && matchesPrefix(class) {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findContainer(c); found != nil {
			return found
		}
	}
	return nil
}

// matchesPrefix checks the whole attribute and each class token.
func matchesPrefix(class string) bool {
	candidates := append([]string{class}, strings.Fields(class)...)
	for _, c := range candidates {
		for _, p := range ClassPrefixes {
			if strings.HasPrefix(c, p) {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// visibleText joins the element's text nodes with single spaces, collapsing
// whitespace runs and trimming the ends.
func visibleText(n *html.Node) string {
	var words []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			words = append(words, strings.Fields(n.Data)...)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(words, " ")
}
