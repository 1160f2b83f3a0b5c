package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fetched page, from plain HTTP or a rendered browser tab.
type Response struct {
	// URL is the address that was requested.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	doc *goquery.Document
}

// NewResponse creates a Response from an http.Response and its read body.
func NewResponse(requested string, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	final := requested
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		final = httpResp.Request.URL.String()
	}
	return &Response{
		URL:           requested,
		FinalURL:      final,
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
	}
}

// NewBrowserResponse creates a Response from rendered browser HTML.
func NewBrowserResponse(requested, finalURL string, html []byte, duration time.Duration) *Response {
	return &Response{
		URL:           requested,
		FinalURL:      finalURL,
		StatusCode:    http.StatusOK,
		Headers:       make(http.Header),
		Body:          html,
		ContentType:   "text/html",
		FetchDuration: duration,
	}
}

// Document returns a parsed goquery document, lazily initializing it.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &ParseError{URL: r.URL, Err: err}
	}
	r.doc = doc
	return doc, nil
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
