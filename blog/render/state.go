package render

import (
	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/blog/textmetrics"
)

// State is the current presentation state of a post page. It is one of Loading,
// Failed or Ready.
type State interface {
	isState()
	Name() string
}

// Loading is entered whenever a new identifier starts loading.
type Loading struct {
	ID domain.PostIdentifier
}

// Failed ends a cycle that could not produce a post.
type Failed struct {
	ID  domain.PostIdentifier
	Err domain.PostError
}

// Ready ends a cycle with a post and its metrics.
type Ready struct {
	Post    *domain.Post
	Metrics textmetrics.Metrics
}

func (Loading) isState() {}
func (Failed) isState()  {}
func (Ready) isState()   {}

func (Loading) Name() string { return "loading" }
func (Failed) Name() string  { return "failed" }
func (Ready) Name() string   { return "ready" }

// Terminal reports whether s ends a load cycle.
func Terminal(s State) bool {
	switch s.(type) {
	case Failed, Ready:
		return true
	default:
		return false
	}
}
