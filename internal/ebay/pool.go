package ebay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/store"
)

// CooldownDuration is how long a credential sits out after a 429.
const CooldownDuration = 5 * time.Minute

// Pool rotates API credentials round-robin across the usable subset.
// Usable means persisted status ok and no active cooldown. The cooldown
// map is process-local and expires lazily on read.
type Pool struct {
	store *store.Store
	log   *slog.Logger

	mu       sync.Mutex
	keys     []model.Credential
	index    int
	cooldown map[string]time.Time
	now      func() time.Time

	// onDisable lets the client evict a disabled credential's token.
	onDisable func(appID string)
}

// NewPool loads the credential set from the backing store.
func NewPool(ctx context.Context, st *store.Store, log *slog.Logger) (*Pool, error) {
	settings, err := st.LoadCredentialSettings(ctx)
	if err != nil {
		return nil, err
	}
	if len(settings.Keys) == 0 {
		return nil, fmt.Errorf("ebay: credential settings are empty")
	}
	return &Pool{
		store:    st,
		log:      log.With("component", "pool"),
		keys:     settings.Keys,
		cooldown: make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// Next returns the next usable credential round-robin, skipping exclude.
// Returns AllCoolingError (with the earliest reset) when every enabled
// credential is cooling, ErrNoUsableCredentials when none is enabled.
func (p *Pool) Next(exclude string) (model.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for id, until := range p.cooldown {
		if now.After(until) {
			delete(p.cooldown, id)
		}
	}

	var usable []model.Credential
	anyEnabled := false
	var earliest time.Time
	for _, c := range p.keys {
		if c.Status != model.CredentialOK {
			continue
		}
		anyEnabled = true
		if until, cooling := p.cooldown[c.AppID]; cooling {
			if earliest.IsZero() || until.Before(earliest) {
				earliest = until
			}
			continue
		}
		if c.AppID == exclude {
			continue
		}
		usable = append(usable, c)
	}
	if len(usable) == 0 {
		if !anyEnabled {
			return model.Credential{}, ErrNoUsableCredentials
		}
		if earliest.IsZero() {
			// Only the excluded credential remains.
			return model.Credential{}, ErrNoUsableCredentials
		}
		return model.Credential{}, &AllCoolingError{ResetIn: earliest.Sub(now)}
	}

	c := usable[p.index%len(usable)]
	p.index++
	return c, nil
}

// MarkCooled puts a credential in cooldown after a 429.
func (p *Pool) MarkCooled(appID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldown[appID] = p.now().Add(CooldownDuration)
	p.log.Warn("credential cooling", "app_id", appID, "for", CooldownDuration)
}

// MarkError disables a credential after a 401 on token acquisition,
// persisting the status and evicting any cached token.
func (p *Pool) MarkError(ctx context.Context, appID string) {
	p.mu.Lock()
	for i := range p.keys {
		if p.keys[i].AppID == appID {
			p.keys[i].Status = model.CredentialError
		}
	}
	onDisable := p.onDisable
	p.mu.Unlock()

	if err := p.store.UpdateCredentialStatus(ctx, appID, model.CredentialError); err != nil {
		p.log.Error("persist credential status", "app_id", appID, "error", err)
	}
	if onDisable != nil {
		onDisable(appID)
	}
	p.log.Error("credential disabled", "app_id", appID)
}

// RecordCall bumps the credential's persisted per-day call count. This is
// observability only; failures are logged and absorbed.
func (p *Pool) RecordCall(ctx context.Context, appID string) {
	day := p.now().UTC().Format("2006-01-02")
	p.mu.Lock()
	calls := 0
	for i := range p.keys {
		if p.keys[i].AppID != appID {
			continue
		}
		if p.keys[i].CallsResetDate != day {
			p.keys[i].CallsToday = 0
			p.keys[i].CallsResetDate = day
		}
		p.keys[i].CallsToday++
		calls = p.keys[i].CallsToday
	}
	p.mu.Unlock()

	if err := p.store.UpsertCredentialUsage(ctx, appID, calls, day); err != nil {
		p.log.Warn("persist credential usage", "app_id", appID, "error", err)
	}
}

// Status summarizes the pool for the health endpoint.
func (p *Pool) Status() (total, usable, cooling int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for _, c := range p.keys {
		total++
		if c.Status != model.CredentialOK {
			continue
		}
		if until, ok := p.cooldown[c.AppID]; ok && now.Before(until) {
			cooling++
			continue
		}
		usable++
	}
	return total, usable, cooling
}
