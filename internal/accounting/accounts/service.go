package accounts

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

// Resolver maps account codes to chart of accounts rows through an explicit
// cache. Callers that edit the chart must call Invalidate.
type Resolver struct {
	repo  Repository
	cache Cache
	group singleflight.Group
}

// NewResolver constructs a Resolver. A nil cache selects a MemoryCache.
func NewResolver(repo Repository, cache Cache) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{repo: repo, cache: cache}
}

// Lookup returns the account for code regardless of its active flag.
func (r *Resolver) Lookup(ctx context.Context, code string) (Account, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Account{}, false, nil
	}
	if entry, ok, err := r.cache.Get(ctx, code); err == nil && ok {
		return entry.Account, !entry.Missing, nil
	}
	v, err, _ := r.group.Do(code, func() (interface{}, error) {
		account, err := r.repo.FindByCode(ctx, code)
		if errors.Is(err, ErrAccountNotFound) {
			entry := Entry{Missing: true}
			_ = r.cache.Put(ctx, code, entry)
			return entry, nil
		}
		if err != nil {
			return nil, err
		}
		entry := Entry{Account: account}
		_ = r.cache.Put(ctx, code, entry)
		return entry, nil
	})
	if err != nil {
		return Account{}, false, err
	}
	entry := v.(Entry)
	return entry.Account, !entry.Missing, nil
}

// Resolve returns the active account for code, or an UnknownAccountError.
func (r *Resolver) Resolve(ctx context.Context, code string) (Account, error) {
	account, ok, err := r.Lookup(ctx, code)
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, &shared.UnknownAccountError{Code: NormalizeCode(code)}
	}
	if !account.IsActive {
		return Account{}, &shared.UnknownAccountError{Code: account.Code, Inactive: true}
	}
	return account, nil
}

// Invalidate drops every cached resolution.
func (r *Resolver) Invalidate(ctx context.Context) error {
	return r.cache.Invalidate(ctx)
}

// Service manages the chart of accounts lifecycle. Accounts are never
// deleted once created; deactivation is the only transition.
type Service struct {
	repo     Repository
	resolver *Resolver
	notify   []Cache
}

// NewService wires the service. notify lists extra caches (for example a
// RedisCache used to reach other processes) invalidated after every edit.
func NewService(repo Repository, resolver *Resolver, notify ...Cache) *Service {
	return &Service{repo: repo, resolver: resolver, notify: notify}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Create adds a new active account.
func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	account.Code = NormalizeCode(account.Code)
	account.Name = strings.TrimSpace(account.Name)
	if account.Code == "" {
		return Account{}, shared.Invalid("code", "account code is required")
	}
	if !account.Type.Valid() {
		return Account{}, shared.Invalid("type", "unsupported account type "+string(account.Type))
	}
	account.IsActive = true
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return Account{}, err
	}
	return created, s.invalidate(ctx)
}

// Deactivate marks the account inactive so new postings reject it.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	return s.setActive(ctx, code, false)
}

// Reactivate re-enables a previously deactivated account.
func (s *Service) Reactivate(ctx context.Context, code string) error {
	return s.setActive(ctx, code, true)
}

func (s *Service) setActive(ctx context.Context, code string, active bool) error {
	if err := s.repo.SetActive(ctx, NormalizeCode(code), active); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) error {
	var errs []error
	if s.resolver != nil {
		errs = append(errs, s.resolver.Invalidate(ctx))
	}
	for _, c := range s.notify {
		if c != nil {
			errs = append(errs, c.Invalidate(ctx))
		}
	}
	return errors.Join(errs...)
}
