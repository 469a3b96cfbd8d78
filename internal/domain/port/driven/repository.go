package driven

import "context"

// RepoInspector defines the driven port for reading the local git checkout.
type RepoInspector interface {
	// HeadSHA returns the commit the working tree is at.
	HeadSHA(ctx context.Context) (string, error)

	// DetectRepo derives "owner/name" from the origin remote.
	DetectRepo(ctx context.Context) (string, error)
}
