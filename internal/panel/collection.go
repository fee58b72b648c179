// Package panel manages the dashboard's remote user collection. The
// collection backs all three resource panels: the users table, the
// social handles table and the image gallery all render different
// projections of the same cached list.
//
// Reads fetch from the API on cache miss. Deletes go to the API first
// and, on success, splice the cached copy in place instead of
// refetching. A failed delete leaves the cache untouched.
package panel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"creatordesk/internal/cache"
	"creatordesk/internal/model"
	"creatordesk/internal/upstream"
)

// Controller coordinates the API client and the per-session cache.
type Controller struct {
	api    *upstream.Client
	users  *cache.Typed[[]model.User]
	ttl    time.Duration
	logger *slog.Logger

	// spliceMu serializes splices. Two deletes editing the same entry
	// must see each other's result, not a shared stale snapshot.
	spliceMu sync.Mutex
}

// New creates a controller over the given API client and cache backend.
func New(api *upstream.Client, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Controller {
	return &Controller{
		api:    api,
		users:  cache.NewTyped[[]model.User](c),
		ttl:    ttl,
		logger: logger,
	}
}

// keyPrefix derives the cache namespace for one session token. Tokens
// are hashed so bearer credentials never appear as cache keys.
func keyPrefix(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8]) + ":"
}

func usersKey(token string) string {
	return keyPrefix(token) + "users"
}

// Users returns the user collection for the given admin token,
// fetching from the API only when the cache has no copy.
func (c *Controller) Users(ctx context.Context, token string) ([]model.User, error) {
	key := usersKey(token)

	users, err := c.users.Get(ctx, key)
	if err == nil {
		return users, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("panel cache read failed", "error", err)
	}

	users, err = c.api.ListUsers(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := c.users.Set(ctx, key, users, c.ttl); err != nil {
		c.logger.Warn("panel cache write failed", "error", err)
	}
	return users, nil
}

// Invalidate drops all cached data for the given token. Called on
// logout so the next session starts from a fresh fetch.
func (c *Controller) Invalidate(ctx context.Context, token string) {
	if err := c.users.DeleteByPrefix(ctx, keyPrefix(token)); err != nil {
		c.logger.Warn("panel cache invalidation failed", "error", err)
	}
}

// DeleteUser removes a user via the API and splices them out of the
// cached collection on success.
func (c *Controller) DeleteUser(ctx context.Context, token, userID string) error {
	if err := c.api.DeleteUser(ctx, token, userID); err != nil {
		return err
	}

	c.splice(ctx, token, func(users []model.User) []model.User {
		out := users[:0]
		for _, u := range users {
			if u.ID != userID {
				out = append(out, u)
			}
		}
		return out
	})
	return nil
}

// DeleteSocialHandle removes one platform's handle from a user via the
// API and splices it out of the cached collection on success.
func (c *Controller) DeleteSocialHandle(ctx context.Context, token, userID, platform string) error {
	if err := c.api.DeleteSocialHandle(ctx, token, userID, platform); err != nil {
		return err
	}

	c.splice(ctx, token, func(users []model.User) []model.User {
		for i, u := range users {
			if u.ID != userID {
				continue
			}
			handles := u.SocialHandles[:0]
			for _, h := range u.SocialHandles {
				if h.Platform != platform {
					handles = append(handles, h)
				}
			}
			users[i].SocialHandles = handles
		}
		return users
	})
	return nil
}

// DeleteImage removes one image from a user via the API and splices it
// out of the cached collection on success.
func (c *Controller) DeleteImage(ctx context.Context, token, userID, imagePath string) error {
	if err := c.api.DeleteImage(ctx, token, userID, imagePath); err != nil {
		return err
	}

	c.splice(ctx, token, func(users []model.User) []model.User {
		for i, u := range users {
			if u.ID != userID {
				continue
			}
			images := u.Images[:0]
			for _, img := range u.Images {
				if img.URL != imagePath {
					images = append(images, img)
				}
			}
			users[i].Images = images
		}
		return users
	})
	return nil
}

// splice applies an in-place edit to the cached collection, holding
// spliceMu across the read-modify-write so concurrent deletes land in
// sequence. A cache miss is fine: the next read refetches and gets the
// post-delete state from the API anyway. Edits on entries already
// absent are no-ops, so a repeated delete converges instead of
// erroring.
func (c *Controller) splice(ctx context.Context, token string, edit func([]model.User) []model.User) {
	c.spliceMu.Lock()
	defer c.spliceMu.Unlock()

	key := usersKey(token)

	users, err := c.users.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("panel cache read failed during splice", "error", err)
		}
		return
	}

	if err := c.users.Set(ctx, key, edit(users), c.ttl); err != nil {
		c.logger.Warn("panel cache write failed during splice", "error", err)
	}
}
