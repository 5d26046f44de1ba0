package posts

import (
	"context"

	"github.com/Borislavv/go-feed-cache/model"
	"golang.org/x/sync/errgroup"
)

// sign replaces every URL in f with a freshly signed one. Each URL is signed independently and a
// failure keeps the previous value, so one bad object never fails the page.
func (s *Service) sign(ctx context.Context, f *model.Feed) {
	if f == nil || len(f.Posts) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range f.Posts {
		post := &f.Posts[i]

		for j := range post.MediaItems {
			item := &post.MediaItems[j]
			if item.StoragePath == nil || *item.StoragePath == "" {
				continue
			}
			g.Go(func() error {
				url, err := s.media.Sign(gctx, item.StoragePath, item.URL)
				if err != nil {
					s.regenerationFailed("media", *item.StoragePath, err)
				}
				item.URL = url
				return nil
			})
		}

		if author := &post.User; author.AvatarStoragePath != nil && *author.AvatarStoragePath != "" {
			g.Go(func() error {
				url, err := s.media.Sign(gctx, author.AvatarStoragePath, "")
				if err != nil {
					s.regenerationFailed("avatar", *author.AvatarStoragePath, err)
					return nil
				}
				author.AvatarURL = &url
				return nil
			})
		}

		if c := post.Category; c != nil && c.ImageURL != nil {
			g.Go(func() error {
				url := s.media.SignPublicURL(gctx, *c.ImageURL)
				c.ImageURL = &url
				return nil
			})
		}
	}
	_ = g.Wait()

	for i := range f.Posts {
		f.Posts[i].MediaURLs = mediaURLs(f.Posts[i].MediaItems)
	}
}

func (s *Service) regenerationFailed(kind, path string, err error) {
	s.metrics.URLRegenerationFailed()
	s.logger.Error("failed to regenerate signed url", "kind", kind, "path", path, "err", err)
}
