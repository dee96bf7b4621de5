package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/mo"

	"github.com/justchokingaround/tvsession/internal/session"
	"github.com/justchokingaround/tvsession/internal/stream"
)

// playlist is the ordered list of streams given to `play`. For live streams
// it is the channel list the session switches through; for movies and
// episodes it is the queue the session advances through.
type playlist struct {
	mu      sync.Mutex
	kind    stream.Kind
	ext     string
	ids     []string
	titles  []string
	current int
	pending mo.Option[int]
	// interrupt ends the running session after a channel switch
	interrupt context.CancelFunc
}

func newPlaylist(kind stream.Kind, ext string, ids, titles []string) *playlist {
	return &playlist{kind: kind, ext: ext, ids: ids, titles: titles}
}

// media describes the current entry for a session
func (p *playlist) media(acc stream.Account) session.Media {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.ids[p.current]
	return session.Media{
		ID:      mediaID(p.kind, id),
		Title:   p.titleLocked(p.current),
		Kind:    p.kind,
		URL:     stream.Resolve(acc, p.kind, id, p.ext),
		HasNext: p.kind != stream.KindLive && p.current < len(p.ids)-1,
	}
}

func (p *playlist) titleLocked(i int) string {
	if i < len(p.titles) && p.titles[i] != "" {
		return p.titles[i]
	}
	switch p.kind {
	case stream.KindLive:
		return fmt.Sprintf("Channel %s", p.ids[i])
	case stream.KindSeries:
		return fmt.Sprintf("Episode %s", p.ids[i])
	default:
		return fmt.Sprintf("Movie %s", p.ids[i])
	}
}

// bind registers the cancel func of the running session
func (p *playlist) bind(interrupt context.CancelFunc) {
	p.mu.Lock()
	p.interrupt = interrupt
	p.mu.Unlock()
}

// SwitchChannel queues the neighbouring channel and ends the running
// session so the play loop can start it. The list wraps around.
func (p *playlist) SwitchChannel(ctx context.Context, direction int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.ids)
	if p.kind != stream.KindLive || n < 2 || direction == 0 {
		return false
	}
	step := 1
	if direction < 0 {
		step = -1
	}
	p.pending = mo.Some(((p.current+step)%n + n) % n)
	if p.interrupt != nil {
		p.interrupt()
	}
	return true
}

// next moves to the entry the ended session leads to. It reports false when
// playback should stop.
func (p *playlist) next(advanced bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if target, ok := p.pending.Get(); ok {
		p.pending = mo.None[int]()
		p.current = target
		return true
	}
	if advanced && p.current < len(p.ids)-1 {
		p.current++
		return true
	}
	return false
}

// mediaID is the key the subtitle cache and continue-watching store use
func mediaID(kind stream.Kind, streamID string) string {
	return kind.String() + ":" + streamID
}
