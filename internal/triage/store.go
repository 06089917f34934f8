package triage

import (
	"context"

	"github.com/linnemanlabs/carecheck/internal/wizard"
)

// Store is the state interface for assessments and wizard sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Result, bool, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Result, bool, error)
	Put(ctx context.Context, result *Result) error
	GetSession(ctx context.Context, id string) (*wizard.Session, bool, error)
	PutSession(ctx context.Context, session *wizard.Session) error
}
