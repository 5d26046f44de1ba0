package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

const (
	FeedPrefix              = "feed:"
	SignedURLPrefix         = "signed_url:"
	ProfilePrefix           = "user_profile:"
	NotificationCountPrefix = "notification_count:"
)

// feedParams fields are declared in lexical order of their json names so the encoding is canonical.
type feedParams struct {
	Cursor *string `json:"cursor"`
	Limit  int     `json:"limit"`
	Offset *int    `json:"offset"`
	UserID string  `json:"user_id"`
}

var hasherPool = sync.Pool{New: func() any { return xxh3.New() }}

// FeedKey hashes the exact pagination tuple. Nil and zero cursors/offsets are distinct.
func FeedKey(userID string, limit int, cursor *string, offset *int) string {
	data, err := json.Marshal(feedParams{Cursor: cursor, Limit: limit, Offset: offset, UserID: userID})
	if err != nil {
		// plain struct of strings and ints, cannot fail
		panic(fmt.Sprintf("marshal feed key params: %v", err))
	}

	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()
	_, _ = hasher.Write(data)
	sum := hasher.Sum128()
	hasherPool.Put(hasher)

	return fmt.Sprintf("%s%016x%016x", FeedPrefix, sum.Hi, sum.Lo)
}

func SignedURLKey(path string, expirySeconds int) string {
	return SignedURLPrefix + path + ":" + strconv.Itoa(expirySeconds)
}

// SignedURLPath extracts the storage path from a signed-url key.
func SignedURLPath(key string) (path string, ok bool) {
	rest, found := strings.CutPrefix(key, SignedURLPrefix)
	if !found {
		return "", false
	}
	idx := strings.LastIndexByte(rest, ':')
	if idx < 0 {
		return "", false
	}
	if _, err := strconv.Atoi(rest[idx+1:]); err != nil {
		return "", false
	}
	return rest[:idx], true
}

func ProfileKey(userID string) string           { return ProfilePrefix + userID }
func NotificationCountKey(userID string) string { return NotificationCountPrefix + userID }
