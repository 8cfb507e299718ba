// Package wiki looks up short word descriptions on Wikipedia.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNotFound = errors.New("article not found")
	ErrParsing  = errors.New("failed to parse article")
	ErrStatus   = errors.New("unexpected response status")
)

var footnote = regexp.MustCompile(`\[[^\]]*\]`)

type Client struct {
	http    *http.Client
	baseURL string
	log     *slog.Logger
}

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Describe returns the first sentence of the article found for word,
// with the word itself hidden.
func (c *Client) Describe(ctx context.Context, word string) (string, error) {
	const op = "wiki.Describe"

	link, err := c.find(ctx, word)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	paragraph, err := c.firstParagraph(ctx, link)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("description found",
		slog.String("word", word),
		slog.String("url", link))

	return hide(firstSentence(paragraph), word), nil
}

func (c *Client) find(ctx context.Context, word string) (string, error) {
	query := url.Values{
		"action":        {"opensearch"},
		"format":        {"json"},
		"formatversion": {"2"},
		"search":        {word},
		"namespace":     {"0"},
		"limit":         {"1"},
	}

	resp, err := c.get(ctx, c.baseURL+"/w/api.php?"+query.Encode())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// [query, [titles], [descriptions], [links]]
	var data []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: %s", ErrParsing, err)
	}
	if len(data) < 4 {
		return "", ErrNotFound
	}

	var links []string
	if err := json.Unmarshal(data[3], &links); err != nil {
		return "", fmt.Errorf("%w: %s", ErrParsing, err)
	}
	if len(links) == 0 || links[0] == "" {
		return "", ErrNotFound
	}

	return links[0], nil
}

func (c *Client) firstParagraph(ctx context.Context, link string) (string, error) {
	resp, err := c.get(ctx, link)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrParsing, err)
	}

	var paragraph string
	doc.Find("div.mw-parser-output > p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(footnote.ReplaceAllString(s.Text(), "")), " ")
		if text == "" {
			return true
		}
		paragraph = text
		return false
	})

	if paragraph == "" {
		return "", ErrParsing
	}

	return paragraph, nil
}

func (c *Client) get(ctx context.Context, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "hangman-bot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	return resp, nil
}

func firstSentence(text string) string {
	if i := strings.Index(text, ". "); i > 0 {
		return text[:i+1]
	}
	return text
}

// hide replaces every case-insensitive occurrence of word with asterisks.
func hide(text, word string) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(word))
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, strings.Repeat("*", len([]rune(word))))
}
