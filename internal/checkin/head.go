package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Opener opens a git repository at the given path
type Opener interface {
	Open(path string) (Repository, error)
}

// Repository is the part of a git repository HeadWatcher inspects
type Repository interface {
	Head() (*plumbing.Reference, error)
}

// PlainOpener opens a repository from a filesystem
type PlainOpener struct{}

func (PlainOpener) Open(path string) (Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return repo, nil
}

// HeadWatcher accepts a check-in only when HEAD of a real repository moved
// since the previously accepted check-in. The first call accepts any HEAD.
type HeadWatcher struct {
	mx     sync.Mutex
	opener Opener
	path   string
	last   plumbing.Hash
	now    func() time.Time
}

func NewHeadWatcher(path string, opener Opener) *HeadWatcher {
	if opener == nil {
		opener = PlainOpener{}
	}
	return &HeadWatcher{
		opener: opener,
		path:   path,
		now:    time.Now,
	}
}

func (w *HeadWatcher) Commit(ctx context.Context, message string) (Revision, error) {
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}
	repo, err := w.opener.Open(w.path)
	if err != nil {
		return Revision{}, fmt.Errorf("opening git repository at %s: %w", w.path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("getting HEAD reference: %w", err)
	}

	w.mx.Lock()
	defer w.mx.Unlock()
	if head.Hash() == w.last {
		return Revision{}, fmt.Errorf("%s: %w", head.Hash(), ErrNoNewCommit)
	}
	w.last = head.Hash()

	branch := "detached"
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}
	slog.InfoContext(ctx, "check-in accepted", "hash", head.Hash().String(), "branch", branch, "message", message)
	return Revision{
		Hash:   head.Hash().String(),
		Branch: branch,
		When:   w.now(),
	}, nil
}
