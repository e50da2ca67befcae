package mappings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

// Service resolves business posting keys to account codes.
type Service struct {
	repo     Repository
	defaults map[string]string
}

// NewService constructs the mapping service. defaults may be nil; keys are
// "MODULE/key".
func NewService(repo Repository, defaults map[string]string) *Service {
	return &Service{repo: repo, defaults: defaults}
}

// AccountCode returns the account code mapped to module/key, falling back to
// the configured defaults when the table has no row.
func (s *Service) AccountCode(ctx context.Context, module, key string) (string, error) {
	module, key = normalize(module, key)
	if s.repo != nil && module != "" && key != "" {
		mapping, err := s.repo.Get(ctx, module, key)
		if err == nil {
			return mapping.AccountCode, nil
		}
		if !errors.Is(err, shared.ErrMappingNotFound) {
			return "", err
		}
	}
	if code, ok := s.defaults[module+"/"+key]; ok {
		return code, nil
	}
	return "", fmt.Errorf("%w: %s/%s", shared.ErrMappingNotFound, module, key)
}

// Set overrides the account behind module/key. Only keys the posting
// workflows read can be overridden.
func (s *Service) Set(ctx context.Context, module, key, accountCode string) (AccountMapping, error) {
	module, key = normalize(module, key)
	accountCode = strings.TrimSpace(accountCode)
	if _, ok := DefaultRetailMappings[module+"/"+key]; !ok {
		return AccountMapping{}, shared.Invalid("key", fmt.Sprintf("unsupported mapping %s/%s", module, key))
	}
	if accountCode == "" {
		return AccountMapping{}, shared.Invalid("account_code", "account code is required")
	}
	if s.repo == nil {
		return AccountMapping{}, errors.New("mappings: no repository configured")
	}
	return s.repo.Set(ctx, AccountMapping{Module: module, Key: key, AccountCode: accountCode})
}

func normalize(module, key string) (string, string) {
	return strings.ToUpper(strings.TrimSpace(module)), strings.TrimSpace(key)
}
