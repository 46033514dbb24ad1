package external

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
)

// ErrNoCredentials is returned when a pool is built without any usable credential
var ErrNoCredentials = errors.New("at least one backend credential is required")

// Credential is one backend API key together with its position in the pool
type Credential struct {
	Index int
	Key   string
}

// CredentialPool tracks which backend credentials are still usable.
//
// A credential marked dead is skipped by LiveCredentials until every credential
// is dead, at which point the dead set is cleared and the whole pool is offered
// again. The pool is safe for concurrent use.
type CredentialPool struct {
	mu          sync.Mutex
	credentials []string
	dead        map[int]struct{}
	logger      *logrus.Logger
}

// NewCredentialPool creates a pool over the given credentials
func NewCredentialPool(credentials []string, logger *logrus.Logger) (*CredentialPool, error) {
	if len(credentials) == 0 {
		return nil, ErrNoCredentials
	}
	keys := make([]string, len(credentials))
	for i, c := range credentials {
		if strings.TrimSpace(c) == "" {
			return nil, domain.NewValidationError("credentials", "credential must not be blank", i)
		}
		keys[i] = c
	}

	return &CredentialPool{
		credentials: keys,
		dead:        make(map[int]struct{}),
		logger:      logger,
	}, nil
}

// LiveCredentials returns the live credentials in random order. The result is
// never empty: when every credential is dead the pool resets first.
func (p *CredentialPool) LiveCredentials() []Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.dead) >= len(p.credentials) {
		p.logger.WithField("credentials", len(p.credentials)).Warn("All backend credentials exhausted, resetting pool")
		p.dead = make(map[int]struct{})
	}

	live := make([]Credential, 0, len(p.credentials)-len(p.dead))
	for i, key := range p.credentials {
		if _, isDead := p.dead[i]; isDead {
			continue
		}
		live = append(live, Credential{Index: i, Key: key})
	}

	rand.Shuffle(len(live), func(i, j int) {
		live[i], live[j] = live[j], live[i]
	})
	return live
}

// MarkDead removes a credential from the live set. Marking an already dead
// credential has no further effect.
func (p *CredentialPool) MarkDead(index int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.credentials) {
		p.logger.WithField("index", index).Warn("Ignoring unknown credential index")
		return
	}
	if _, isDead := p.dead[index]; isDead {
		return
	}
	p.dead[index] = struct{}{}

	p.logger.WithFields(logrus.Fields{
		"credential": maskCredential(p.credentials[index]),
		"reason":     reason,
		"live":       len(p.credentials) - len(p.dead),
		"total":      len(p.credentials),
	}).Warn("Backend credential marked dead")
}

// LiveCount returns the number of credentials not currently marked dead
func (p *CredentialPool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.credentials) - len(p.dead)
}

// Size returns the total number of credentials
func (p *CredentialPool) Size() int {
	return len(p.credentials)
}

// Snapshot returns the state of every credential with the key masked
func (p *CredentialPool) Snapshot() []domain.CredentialState {
	p.mu.Lock()
	defer p.mu.Unlock()

	states := make([]domain.CredentialState, len(p.credentials))
	for i, key := range p.credentials {
		_, isDead := p.dead[i]
		states[i] = domain.CredentialState{
			Index:      i,
			Credential: maskCredential(key),
			Live:       !isDead,
		}
	}
	return states
}

func maskCredential(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
