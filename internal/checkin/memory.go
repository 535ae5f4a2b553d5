package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

const (
	DefaultAuthor = "testbed"
	DefaultEmail  = "testbed@localhost"
	DefaultBranch = "main"

	checkinFile = "CHECKIN"
)

// MemoryRepo simulates a check-in by writing a commit into an in-memory git
// repository. Each commit replaces the content of a single file.
type MemoryRepo struct {
	mx     sync.Mutex
	store  *memory.Storage
	repo   *git.Repository
	delay  time.Duration
	author string
	email  string
	branch plumbing.ReferenceName
	now    func() time.Time
}

type MemoryOption func(*MemoryRepo)

// WithDelay simulates the time spent by a check-in
func WithDelay(d time.Duration) MemoryOption {
	return func(r *MemoryRepo) {
		r.delay = d
	}
}

// WithAuthor sets the commit signature
func WithAuthor(name, email string) MemoryOption {
	return func(r *MemoryRepo) {
		if name != "" {
			r.author = name
		}
		if email != "" {
			r.email = email
		}
	}
}

func withClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepo) {
		r.now = now
	}
}

func NewMemoryRepo(opts ...MemoryOption) (*MemoryRepo, error) {
	store := memory.NewStorage()
	repo, err := git.Init(store, nil)
	if err != nil {
		return nil, fmt.Errorf("init in-memory repository: %w", err)
	}
	r := &MemoryRepo{
		store:  store,
		repo:   repo,
		author: DefaultAuthor,
		email:  DefaultEmail,
		branch: plumbing.NewBranchReferenceName(DefaultBranch),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, r.branch)
	if err := store.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD: %w", err)
	}
	return r, nil
}

// Commit writes a new commit on the main branch
func (r *MemoryRepo) Commit(ctx context.Context, message string) (Revision, error) {
	slog.InfoContext(ctx, "checking in source code", "delay", r.delay.String())
	if err := sleep(ctx, r.delay); err != nil {
		return Revision{}, err
	}

	r.mx.Lock()
	defer r.mx.Unlock()

	var parents []plumbing.Hash
	ref, err := r.store.Reference(r.branch)
	switch {
	case err == nil:
		parents = append(parents, ref.Hash())
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	default:
		return Revision{}, fmt.Errorf("read %s: %w", r.branch, err)
	}

	when := r.now()
	blobHash, err := r.blob(fmt.Sprintf("%s\n%s\n", when.UTC().Format(time.RFC3339Nano), message))
	if err != nil {
		return Revision{}, err
	}

	tree := object.Tree{
		Entries: []object.TreeEntry{
			{
				Name: checkinFile,
				Mode: filemode.Regular,
				Hash: blobHash,
			},
		},
	}
	treeObj := r.store.NewEncodedObject()
	if err := tree.Encode(treeObj); err != nil {
		return Revision{}, fmt.Errorf("encode tree: %w", err)
	}
	treeHash, err := r.store.SetEncodedObject(treeObj)
	if err != nil {
		return Revision{}, fmt.Errorf("store tree: %w", err)
	}

	sig := object.Signature{
		Name:  r.author,
		Email: r.email,
		When:  when,
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	commitObj := r.store.NewEncodedObject()
	if err := commit.Encode(commitObj); err != nil {
		return Revision{}, fmt.Errorf("encode commit: %w", err)
	}
	commitHash, err := r.store.SetEncodedObject(commitObj)
	if err != nil {
		return Revision{}, fmt.Errorf("store commit: %w", err)
	}

	if err := r.store.SetReference(plumbing.NewHashReference(r.branch, commitHash)); err != nil {
		return Revision{}, fmt.Errorf("update %s: %w", r.branch, err)
	}

	return Revision{
		Hash:   commitHash.String(),
		Branch: r.branch.Short(),
		When:   when,
	}, nil
}

func (r *MemoryRepo) blob(content string) (plumbing.Hash, error) {
	blob := r.store.NewEncodedObject()
	blob.SetType(plumbing.BlobObject)
	w, err := blob.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("blob writer: %w", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("close blob: %w", err)
	}
	h, err := r.store.SetEncodedObject(blob)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return h, nil
}

// History returns all check-ins, the newest first
func (r *MemoryRepo) History() ([]Revision, error) {
	r.mx.Lock()
	defer r.mx.Unlock()

	ref, err := r.store.Reference(r.branch)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.branch, err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	var ret []Revision
	err = iter.ForEach(func(c *object.Commit) error {
		ret = append(ret, Revision{
			Hash:   c.Hash.String(),
			Branch: r.branch.Short(),
			When:   c.Committer.When,
		})
		return nil
	})
	return ret, err
}
