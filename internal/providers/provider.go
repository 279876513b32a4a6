package providers

import (
	"context"
	"errors"
)

// ErrNoImages is returned by finders that resolved a page without images.
var ErrNoImages = errors.New("no usable images found")

// Finder resolves a chapter page to its image URLs, in reading order.
type Finder interface {
	FindImages(ctx context.Context, chapterURL string) ([]string, error)
}

// FinderFunc adapts a plain function to Finder.
type FinderFunc func(ctx context.Context, chapterURL string) ([]string, error)

func (f FinderFunc) FindImages(ctx context.Context, chapterURL string) ([]string, error) {
	return f(ctx, chapterURL)
}
