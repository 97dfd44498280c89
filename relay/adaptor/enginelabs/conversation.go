package enginelabs

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	gocache "github.com/patrickmn/go-cache"

	"github.com/e2bridge/e2bridge/common/random"
	"github.com/e2bridge/e2bridge/monitor"
	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

// EmptyHistoryFingerprint is the fingerprint of a conversation with no prior turns.
const EmptyHistoryFingerprint = "empty"

// ConversationCache maps history fingerprints to upstream conversation handles.
// Entries never expire and a fingerprint, once bound, is never rebound.
type ConversationCache struct {
	items *gocache.Cache
}

func NewConversationCache() *ConversationCache {
	// no janitor: nothing expires
	return &ConversationCache{items: gocache.New(gocache.NoExpiration, 0)}
}

// GetOrCreate returns the handle bound to fingerprint, binding newHandle() if
// the fingerprint is unseen. When concurrent callers race on the same unseen
// fingerprint the first insert wins and every caller observes its handle.
func (c *ConversationCache) GetOrCreate(fingerprint string, newHandle func() string) (handle string, created bool) {
	if v, ok := c.items.Get(fingerprint); ok {
		return v.(string), false
	}

	candidate := newHandle()
	if err := c.items.Add(fingerprint, candidate, gocache.NoExpiration); err == nil {
		return candidate, true
	}

	// lost the race, the winner's entry is permanent
	v, _ := c.items.Get(fingerprint)
	return v.(string), false
}

// Len returns the number of bound fingerprints.
func (c *ConversationCache) Len() int {
	return c.items.ItemCount()
}

// Resolver turns a prior message history into a stable conversation handle.
type Resolver struct {
	cache     *ConversationCache
	newHandle func() string
	logger    glog.Logger
}

func NewResolver(cache *ConversationCache, logger glog.Logger) *Resolver {
	return &Resolver{
		cache:     cache,
		newHandle: random.NewUUID,
		logger:    logger,
	}
}

// Resolve returns the handle for priorMessages, creating one if unseen.
func (r *Resolver) Resolve(priorMessages []relaymodel.Message) string {
	fingerprint, err := Fingerprint(priorMessages)
	if err != nil {
		// unserializable content never matches a previous history
		r.logger.Warn("failed to fingerprint history, starting a new conversation", zap.Error(err))
		return r.newHandle()
	}

	handle, created := r.cache.GetOrCreate(fingerprint, r.newHandle)
	if created {
		monitor.SetConversationsCached(r.cache.Len())
		r.logger.Info("created new conversation",
			zap.String("conversation", handle),
			zap.String("fingerprint", fingerprint),
			zap.Int("history_len", len(priorMessages)))
	} else {
		r.logger.Info("reusing cached conversation",
			zap.String("conversation", handle),
			zap.Int("history_len", len(priorMessages)))
	}
	return handle
}

// Fingerprint digests the canonical JSON form of messages as the client sent
// them, unknown fields included. Object keys are sorted at every depth, so
// equal histories produced by different clients match. An empty history
// yields EmptyHistoryFingerprint.
func Fingerprint(messages []relaymodel.Message) (string, error) {
	if len(messages) == 0 {
		return EmptyHistoryFingerprint, nil
	}

	history := make([]json.RawMessage, 0, len(messages))
	for _, m := range messages {
		if len(m.Raw) > 0 {
			history = append(history, m.Raw)
			continue
		}
		encoded, err := json.Marshal(m)
		if err != nil {
			return "", errors.Wrap(err, "marshal message")
		}
		history = append(history, encoded)
	}

	canonical, err := canonicalJSON(history)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalJSON re-encodes v through a generic tree; encoding/json writes map
// keys in sorted order. Numbers keep their literal form.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal history")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.Wrap(err, "unmarshal history")
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(err, "marshal canonical history")
	}
	return out, nil
}
