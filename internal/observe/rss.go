package observe

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"repwatch_backend/platform/apperr"
)

// subjectPlaceholder in a feed URL template is replaced with the
// URL-escaped subject, so one template serves any monitored name.
const subjectPlaceholder = "[SUBJECT]"

const feedTimeout = 6 * time.Second

// FeedSource pulls one RSS/Atom feed.
type FeedSource struct {
	template string
	parser   *gofeed.Parser
}

// NewFeedSources builds one source per feed URL template.
func NewFeedSources(templates []string) []Source {
	sources := make([]Source, 0, len(templates))
	for _, t := range templates {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		sources = append(sources, &FeedSource{template: t, parser: gofeed.NewParser()})
	}
	return sources
}

func (f *FeedSource) Name() string {
	u, err := url.Parse(strings.ReplaceAll(f.template, subjectPlaceholder, "q"))
	if err != nil || u.Host == "" {
		return f.template
	}
	return u.Host
}

func (f *FeedSource) Fetch(ctx context.Context, subject string) ([]Candidate, error) {
	feedURL := strings.ReplaceAll(f.template, subjectPlaceholder, url.QueryEscape(subject))

	ctx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, apperr.SourceFetch("fetch feed "+f.Name(), err)
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Source:     f.Name(),
			ExternalID: externalID(item),
			Title:      item.Title,
			URL:        item.Link,
			Snippet:    snippet(item),
			Published:  publishedAt(item),
			Metadata:   map[string]any{"feed": feedURL},
		})
	}
	return candidates, nil
}

// externalID is the first stable identifier the feed offers. Items without
// any identity cannot be deduplicated and are dropped by the filter.
func externalID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func snippet(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}
