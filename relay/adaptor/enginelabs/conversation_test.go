package enginelabs

import (
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/e2bridge/e2bridge/common/logger"
	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

func decodeMessages(t *testing.T, raw string) []relaymodel.Message {
	t.Helper()
	var msgs []relaymodel.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	return msgs
}

func TestFingerprint(t *testing.T) {
	Convey("Given prior message histories", t, func() {
		Convey("an empty history maps to the sentinel", func() {
			fp, err := Fingerprint(nil)
			So(err, ShouldBeNil)
			So(fp, ShouldEqual, EmptyHistoryFingerprint)

			fp, err = Fingerprint([]relaymodel.Message{})
			So(err, ShouldBeNil)
			So(fp, ShouldEqual, EmptyHistoryFingerprint)
		})

		Convey("key order inside content parts does not matter", func() {
			a := decodeMessages(t, `[{"role":"user","content":[{"type":"text","text":"hi"}]}]`)
			b := decodeMessages(t, `[{"content":[{"text":"hi","type":"text"}],"role":"user"}]`)

			fa, err := Fingerprint(a)
			So(err, ShouldBeNil)
			fb, err := Fingerprint(b)
			So(err, ShouldBeNil)
			So(fa, ShouldEqual, fb)
			So(fa, ShouldHaveLength, 32)
		})

		Convey("fields beyond role and content take part", func() {
			a := decodeMessages(t, `[
				{"role":"user","content":"weather?"},
				{"role":"assistant","content":null,"tool_calls":[{"id":"call_a","type":"function","function":{"name":"weather","arguments":"{}"}}]},
				{"role":"tool","tool_call_id":"call_a","content":"sunny"}
			]`)
			b := decodeMessages(t, `[
				{"role":"user","content":"weather?"},
				{"role":"assistant","content":null,"tool_calls":[{"id":"call_b","type":"function","function":{"name":"forecast","arguments":"{}"}}]},
				{"role":"tool","tool_call_id":"call_b","content":"sunny"}
			]`)

			fa, err := Fingerprint(a)
			So(err, ShouldBeNil)
			fb, err := Fingerprint(b)
			So(err, ShouldBeNil)
			So(fa, ShouldNotEqual, fb)

			r := NewResolver(NewConversationCache(), logger.Logger)
			So(r.Resolve(a), ShouldNotEqual, r.Resolve(b))
		})

		Convey("whitespace in the raw body does not matter", func() {
			a := decodeMessages(t, `[{"role":"user","content":"hi","x_vendor":{"b":1,"a":2}}]`)
			b := decodeMessages(t, `[ { "x_vendor" : { "a" : 2, "b" : 1 }, "content" : "hi", "role" : "user" } ]`)
			fa, _ := Fingerprint(a)
			fb, _ := Fingerprint(b)
			So(fa, ShouldEqual, fb)
		})

		Convey("large integers are not rounded together", func() {
			a := decodeMessages(t, `[{"role":"user","content":"hi","seq":9007199254740993}]`)
			b := decodeMessages(t, `[{"role":"user","content":"hi","seq":9007199254740992}]`)
			fa, _ := Fingerprint(a)
			fb, _ := Fingerprint(b)
			So(fa, ShouldNotEqual, fb)
		})

		Convey("different histories get different fingerprints", func() {
			fa, _ := Fingerprint(userMessages("hello", "hi there"))
			fb, _ := Fingerprint(userMessages("hello", "hi there!"))
			fc, _ := Fingerprint(userMessages("hi there", "hello"))
			So(fa, ShouldNotEqual, fb)
			So(fa, ShouldNotEqual, fc)
		})
	})
}

func TestResolver(t *testing.T) {
	Convey("Given a fresh resolver", t, func() {
		cache := NewConversationCache()
		r := NewResolver(cache, logger.Logger)

		Convey("a first turn gets a fresh handle under the sentinel", func() {
			h1 := r.Resolve(nil)
			So(h1, ShouldNotBeEmpty)
			So(cache.Len(), ShouldEqual, 1)

			Convey("and the sentinel is reused afterwards", func() {
				So(r.Resolve([]relaymodel.Message{}), ShouldEqual, h1)
			})
		})

		Convey("identical histories reuse the same handle", func() {
			history := userMessages("What is Go?", "A programming language.")
			first := r.Resolve(history)
			second := r.Resolve(userMessages("What is Go?", "A programming language."))
			So(second, ShouldEqual, first)
			So(cache.Len(), ShouldEqual, 1)
		})

		Convey("different histories get different handles", func() {
			a := r.Resolve(userMessages("one"))
			b := r.Resolve(userMessages("two"))
			So(a, ShouldNotEqual, b)
			So(cache.Len(), ShouldEqual, 2)
		})

		Convey("isolated caches do not share bindings", func() {
			other := NewResolver(NewConversationCache(), logger.Logger)
			So(other.Resolve(userMessages("one")), ShouldNotEqual, r.Resolve(userMessages("one")))
		})
	})
}

func TestConversationCacheConcurrentMissCreatesOneHandle(t *testing.T) {
	cache := NewConversationCache()

	const goroutines = 64
	var (
		wg      sync.WaitGroup
		minted  atomic.Int64
		start   = make(chan struct{})
		handles = make([]string, goroutines)
	)
	newHandle := func() string {
		return "handle-" + strconv.FormatInt(minted.Add(1), 10)
	}

	for i := range goroutines {
		wg.Go(func() {
			<-start
			handles[i], _ = cache.GetOrCreate("fp", newHandle)
		})
	}
	close(start)
	wg.Wait()

	for _, h := range handles {
		require.Equal(t, handles[0], h, "all callers must observe the first inserted handle")
	}
	require.Equal(t, 1, cache.Len())

	again, created := cache.GetOrCreate("fp", newHandle)
	require.False(t, created)
	require.Equal(t, handles[0], again)
}
