package relay

import (
	"strings"

	internaljwt "helpdesk-relay/internal/jwt"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

type AuthStatus int

const (
	AuthAnonymous AuthStatus = iota
	AuthAuthenticated
	AuthRejected
)

func (s AuthStatus) String() string {
	switch s {
	case AuthAuthenticated:
		return "authenticated"
	case AuthRejected:
		return "rejected"
	default:
		return "anonymous"
	}
}

// AuthResult is the outcome of checking a connection token. Err is set only
// for AuthRejected.
type AuthResult struct {
	Status AuthStatus
	User   internaljwt.User
	Err    error
}

// Identity is attached to every admitted socket.
type Identity struct {
	Role          Role
	UserID        string
	Name          string
	Email         string
	Authenticated bool
}

type Gatekeeper struct {
	secret string
}

func NewGatekeeper(secret string) *Gatekeeper {
	return &Gatekeeper{secret: secret}
}

func (g *Gatekeeper) Authenticate(token string) AuthResult {
	if strings.TrimSpace(token) == "" {
		return AuthResult{Status: AuthAnonymous}
	}

	claims, err := internaljwt.ParseToken(g.secret, token)
	if err != nil {
		return AuthResult{Status: AuthRejected, Err: err}
	}
	return AuthResult{Status: AuthAuthenticated, User: internaljwt.UserFromClaims(claims)}
}

// Identity applies the admission policy. Anonymous and rejected connections
// are both admitted as customers without an id.
func (res AuthResult) Identity() Identity {
	if res.Status != AuthAuthenticated {
		return Identity{Role: RoleCustomer}
	}

	user := res.User
	id := Identity{
		Role:          RoleCustomer,
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Authenticated: true,
	}
	if user.ID != "" {
		switch user.Type {
		case internaljwt.Agent:
			id.Role = RoleAgent
		case internaljwt.Admin:
			id.Role = RoleAdmin
		}
	}
	return id
}

// Connect admits s. Staff sockets join their personal room so targeted
// notifications reach every device they are signed in on.
func (r *Relay) Connect(s Socket, token string) Identity {
	res := r.gatekeeper.Authenticate(token)
	identity := res.Identity()
	s.SetData(identity)

	log := r.log.With("socket_id", s.ID(), "auth", res.Status.String(), "role", identity.Role)
	if res.Status == AuthRejected {
		log.Warn("connection token rejected, continuing as anonymous customer", "error", res.Err)
	}

	if identity.Role == RoleAgent || identity.Role == RoleAdmin {
		s.Join(PersonalRoom(identity.Role, identity.UserID))
	}
	connectionsAdmitted.WithLabelValues(string(identity.Role), res.Status.String()).Inc()
	log.Info("socket connected", "user_id", identity.UserID)

	s.Emit(EventConnected, ConnectedPayload{
		SocketID: s.ID(),
		Role:     identity.Role,
		UserID:   identity.UserID,
	})
	return identity
}

// Disconnect records the socket leaving. Room membership is cleared by the transport.
func (r *Relay) Disconnect(s Socket) {
	identity := identityOf(s)
	r.log.Info("socket disconnected", "socket_id", s.ID(), "role", identity.Role, "user_id", identity.UserID)
}

func identityOf(s Socket) Identity {
	if id, ok := s.Data().(Identity); ok {
		return id
	}
	return Identity{Role: RoleCustomer}
}
