// Package realtime serves project rooms over websockets: the admission gate,
// the per-connection transport and the wire envelope.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/devroom/internal/api/auth"
	"github.com/good-yellow-bee/devroom/internal/metrics"
	"github.com/good-yellow-bee/devroom/internal/models"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

// Rejection reasons, in the order the gate checks them.
const (
	ReasonNoToken          = "no token"
	ReasonInvalidProjectID = "invalid project id"
	ReasonProjectNotFound  = "project not found"
	ReasonInvalidToken     = "invalid/blacklisted token"
	ReasonUserNotFound     = "user not found"
	ReasonNotMember        = "not a project member"
)

// Handshake is the connection-attempt metadata the gate inspects.
type Handshake struct {
	Token     string
	ProjectID string
}

// tokenHeaders are consulted after the query parameter, first match wins.
var tokenHeaders = []string{"Authorization", "X-Token", "Token"}

// HandshakeFromRequest extracts the token and project id from an upgrade request.
// The token comes from the first present of the token query parameter and the
// Authorization, X-Token and Token headers; a Bearer prefix is stripped.
func HandshakeFromRequest(r *http.Request) Handshake {
	q := r.URL.Query()
	hs := Handshake{ProjectID: strings.TrimSpace(q.Get("projectId"))}

	if v := q.Get("token"); strings.TrimSpace(v) != "" {
		hs.Token = auth.StripBearer(v)
		return hs
	}
	for _, h := range tokenHeaders {
		if v := r.Header.Get(h); strings.TrimSpace(v) != "" {
			hs.Token = auth.StripBearer(v)
			return hs
		}
	}
	return hs
}

// Rejection is a refused connection attempt.
type Rejection struct {
	Reason string
	Status int
}

func (r *Rejection) Error() string {
	return "connection rejected: " + r.Reason
}

func reject(reason string, status int) *Rejection {
	metrics.WSRejectedTotal.WithLabelValues(reason).Inc()
	return &Rejection{Reason: reason, Status: status}
}

// Admission binds an admitted connection to its user and project.
type Admission struct {
	User    *models.User
	Project *models.Project
	Token   string
}

// Identity returns the sender identity of the admitted user.
func (a *Admission) Identity() models.Identity {
	return a.User.Identity()
}

// TokenVerifier validates session tokens, revocation included.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// Directory is the part of the store the gate reads.
type Directory interface {
	Users() storage.UserRepository
	Projects() storage.ProjectRepository
}

// Gate decides whether a connection attempt may join a project room.
// It only reads from the directory.
type Gate struct {
	tokens TokenVerifier
	dir    Directory
}

// NewGate creates a gate.
func NewGate(tokens TokenVerifier, dir Directory) *Gate {
	return &Gate{tokens: tokens, dir: dir}
}

// Admit validates hs. It returns a *Rejection for refused attempts and a plain
// error when the directory itself fails.
func (g *Gate) Admit(ctx context.Context, hs Handshake) (*Admission, error) {
	if hs.Token == "" {
		return nil, reject(ReasonNoToken, http.StatusUnauthorized)
	}
	if !models.ValidID(hs.ProjectID) {
		return nil, reject(ReasonInvalidProjectID, http.StatusBadRequest)
	}

	project, err := g.dir.Projects().GetByID(ctx, hs.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("gate get project: %w", err)
	}
	if project == nil {
		return nil, reject(ReasonProjectNotFound, http.StatusNotFound)
	}

	claims, err := g.tokens.Verify(ctx, hs.Token)
	if err != nil {
		return nil, reject(ReasonInvalidToken, http.StatusUnauthorized)
	}

	user, err := g.dir.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("gate get user: %w", err)
	}
	if user == nil {
		return nil, reject(ReasonUserNotFound, http.StatusUnauthorized)
	}

	if !project.HasMember(user.ID) {
		return nil, reject(ReasonNotMember, http.StatusForbidden)
	}

	return &Admission{User: user, Project: project, Token: hs.Token}, nil
}
