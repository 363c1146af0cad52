package gitops

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const defaultRemoteName = "origin"

// Signature identifies the author/committer used for commits and tags.
type Signature struct {
	Name  string
	Email string
}

// Repo wraps a go-git repository with the operations the release pipeline
// needs: staging, committing, tagging, pushing, and reading history. It
// operates through a billy filesystem so tests can run entirely in memory.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	sig      Signature
	auth     transport.AuthMethod
	log      *slog.Logger
	now      func() time.Time
}

// Open opens the repository rooted at fs. The .git directory must exist.
func Open(fs billy.Filesystem, log *slog.Logger) (*Repo, error) {
	dotGit, err := fs.Chroot(".git")
	if err != nil {
		return nil, WrapError(err, "failed to access .git directory")
	}

	storage := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())
	repo, err := git.Open(storage, fs)
	if err != nil {
		return nil, WrapError(err, "failed to open repository")
	}

	return wrap(repo, log)
}

// Init creates a fresh repository rooted at fs.
func Init(fs billy.Filesystem, log *slog.Logger) (*Repo, error) {
	dotGit, err := fs.Chroot(".git")
	if err != nil {
		return nil, WrapError(err, "failed to create .git directory")
	}

	storage := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())
	repo, err := git.Init(storage, fs)
	if err != nil {
		return nil, WrapError(err, "failed to initialize repository")
	}

	return wrap(repo, log)
}

func wrap(repo *git.Repository, log *slog.Logger) (*Repo, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Repo{
		repo:     repo,
		worktree: worktree,
		log:      log,
		now:      time.Now,
	}, nil
}

// SetAuth configures token authentication for push operations.
func (r *Repo) SetAuth(token string) {
	if token == "" {
		return
	}
	r.auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

// SetupEnv resolves the committer identity from the environment, falling
// back to the tool's own identity. Called once before the commit stage acts.
func (r *Repo) SetupEnv() error {
	name := os.Getenv("GIT_COMMITTER_NAME")
	if name == "" {
		name = "pr-bumper"
	}
	email := os.Getenv("GIT_COMMITTER_EMAIL")
	if email == "" {
		email = "pr-bumper@users.noreply.github.com"
	}

	r.sig = Signature{Name: name, Email: email}
	r.log.Debug("git identity configured", "name", name, "email", email)
	return nil
}

// LastCommitMessage returns the full message of the HEAD commit.
func (r *Repo) LastCommitMessage(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", ErrNoCommits
		}
		return "", WrapError(err, "failed to resolve HEAD")
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", WrapError(err, "failed to read HEAD commit")
	}

	return commit.Message, nil
}

// Add stages the given paths in order. Paths must exist in the worktree.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if _, err := r.worktree.Add(path); err != nil {
			return WrapErrorf(err, "failed to stage %q", path)
		}
	}
	return nil
}

// Commit creates a commit whose message is the subject followed by a blank
// line and the body. Returns the new commit's hash.
func (r *Repo) Commit(ctx context.Context, subject, body string) (string, error) {
	if r.sig.Name == "" || r.sig.Email == "" {
		if err := r.SetupEnv(); err != nil {
			return "", err
		}
	}

	who := &object.Signature{Name: r.sig.Name, Email: r.sig.Email, When: r.now()}
	hash, err := r.worktree.Commit(subject+"\n\n"+body, &git.CommitOptions{
		Author:    who,
		Committer: who,
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", ErrEmptyCommit
		}
		return "", WrapError(err, "failed to create commit")
	}

	return hash.String(), nil
}

// Tag creates an annotated tag named name at HEAD with the given message.
func (r *Repo) Tag(ctx context.Context, name, message string) error {
	head, err := r.repo.Head()
	if err != nil {
		return WrapError(err, "failed to resolve HEAD")
	}

	_, err = r.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Tagger:  &object.Signature{Name: r.sig.Name, Email: r.sig.Email, When: r.now()},
		Message: message,
	})
	if err != nil {
		return WrapErrorf(err, "failed to create tag %q", name)
	}

	return nil
}

// Push pushes all branches and tags to the originating remote.
// A remote that is already up to date is not an error.
func (r *Repo) Push(ctx context.Context) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: defaultRemoteName,
		RefSpecs: []gitconfig.RefSpec{
			"refs/heads/*:refs/heads/*",
			"refs/tags/*:refs/tags/*",
		},
		Auth: r.auth,
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			r.log.Debug("push skipped, remote already up to date")
			return nil
		}
		return WrapError(err, "failed to push to remote")
	}

	return nil
}
