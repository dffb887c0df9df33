// Package safety screens reply text before it is spoken on stream.
package safety

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies how a reply may proceed.
type Level string

const (
	LevelSafe          Level = "safe"
	LevelNeedsApproval Level = "needs-approval"
	LevelBlocked       Level = "blocked"
)

const defaultApprovalTimeout = 60 * time.Second

// PendingApproval describes a reply held until an operator decides on it.
type PendingApproval struct {
	ID        string
	Text      string
	Requested time.Time
}

// Filter classifies replies into three levels: safe text passes, blocked
// text is rejected outright, and text matching a sensitive pattern is held
// until an operator approves it or the hold times out. Term matching ignores
// case and runs on whole words, so "class" does not match a blocked "ass";
// pattern matching runs the given regexps against the lowercased text.
type Filter struct {
	blockedTerms     map[string]struct{}
	maxLength        int
	blockedPatterns  []*regexp.Regexp
	approvalPatterns []*regexp.Regexp
	approvalTimeout  time.Duration
	notify           func(PendingApproval)

	mu      sync.Mutex
	pending map[string]*approvalRequest
}

type approvalRequest struct {
	PendingApproval
	decision chan bool
}

type Option func(*Filter)

// WithBlockedTerms adds whole words to the blocklist.
func WithBlockedTerms(terms ...string) Option {
	return func(f *Filter) {
		for _, term := range terms {
			f.blockedTerms[strings.ToLower(strings.TrimSpace(term))] = struct{}{}
		}
	}
}

// WithBlockedPatterns rejects replies matching any of the patterns.
func WithBlockedPatterns(patterns ...*regexp.Regexp) Option {
	return func(f *Filter) {
		f.blockedPatterns = append(f.blockedPatterns, patterns...)
	}
}

// WithApprovalPatterns holds replies matching any of the patterns for an
// operator decision instead of rejecting them.
func WithApprovalPatterns(patterns ...*regexp.Regexp) Option {
	return func(f *Filter) {
		f.approvalPatterns = append(f.approvalPatterns, patterns...)
	}
}

// WithApprovalTimeout bounds how long a held reply waits for a decision
// before it is rejected. Defaults to a minute.
func WithApprovalTimeout(timeout time.Duration) Option {
	return func(f *Filter) {
		if timeout > 0 {
			f.approvalTimeout = timeout
		}
	}
}

// WithApprovalNotifier calls fn whenever a reply is held, so the approval id
// can be surfaced to the operator.
func WithApprovalNotifier(fn func(PendingApproval)) Option {
	return func(f *Filter) { f.notify = fn }
}

// WithMaxLength rejects replies longer than n characters. Zero disables the
// limit.
func WithMaxLength(n int) Option {
	return func(f *Filter) { f.maxLength = n }
}

func NewFilter(opts ...Option) *Filter {
	f := &Filter{
		blockedTerms:    map[string]struct{}{},
		approvalTimeout: defaultApprovalTimeout,
		pending:         map[string]*approvalRequest{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classify reports the level of text, with a reason for anything but
// LevelSafe.
func (f *Filter) Classify(text string) (Level, string) {
	if f.maxLength > 0 && len(text) > f.maxLength {
		return LevelBlocked, "reply too long to speak"
	}

	lower := strings.ToLower(text)
	for _, pattern := range f.blockedPatterns {
		if pattern.MatchString(lower) {
			return LevelBlocked, fmt.Sprintf("reply matches blocked pattern %q", pattern)
		}
	}
	for _, word := range strings.FieldsFunc(lower, isWordSeparator) {
		if _, blocked := f.blockedTerms[word]; blocked {
			return LevelBlocked, "reply contains a blocked term"
		}
	}
	for _, pattern := range f.approvalPatterns {
		if pattern.MatchString(lower) {
			return LevelNeedsApproval, fmt.Sprintf("reply matches sensitive pattern %q", pattern)
		}
	}

	return LevelSafe, ""
}

// Screen reports whether text may be spoken, with a reason when it may not.
// Text needing approval blocks until Resolve is called for it, the approval
// timeout passes, or ctx is cancelled.
func (f *Filter) Screen(ctx context.Context, text string) (bool, string) {
	level, reason := f.Classify(text)
	switch level {
	case LevelBlocked:
		return false, reason
	case LevelNeedsApproval:
		return f.awaitApproval(ctx, text, reason)
	}
	return true, ""
}

func (f *Filter) awaitApproval(ctx context.Context, text, reason string) (bool, string) {
	req := &approvalRequest{
		PendingApproval: PendingApproval{
			ID:        uuid.NewString(),
			Text:      text,
			Requested: time.Now(),
		},
		decision: make(chan bool, 1),
	}

	f.mu.Lock()
	f.pending[req.ID] = req
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.pending, req.ID)
		f.mu.Unlock()
	}()

	if f.notify != nil {
		f.notify(req.PendingApproval)
	}

	timer := time.NewTimer(f.approvalTimeout)
	defer timer.Stop()

	select {
	case approved := <-req.decision:
		if approved {
			return true, ""
		}
		return false, "reply rejected by an operator"
	case <-timer.C:
		return false, "approval timed out: " + reason
	case <-ctx.Done():
		return false, "approval abandoned: " + ctx.Err().Error()
	}
}

// Resolve records an operator decision for one held reply and reports
// whether the id was pending. A resolved id cannot be resolved again.
func (f *Filter) Resolve(id string, approved bool) bool {
	f.mu.Lock()
	req, ok := f.pending[id]
	if ok {
		delete(f.pending, id)
	}
	f.mu.Unlock()

	if !ok {
		return false
	}
	req.decision <- approved
	return true
}

// Pending lists the replies currently held for a decision, oldest first.
func (f *Filter) Pending() []PendingApproval {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := make([]PendingApproval, 0, len(f.pending))
	for _, req := range f.pending {
		pending = append(pending, req.PendingApproval)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Requested.Before(pending[j].Requested)
	})
	return pending
}

func isWordSeparator(r rune) bool {
	return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '\'')
}
