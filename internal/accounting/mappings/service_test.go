package mappings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

type stubRepo struct {
	rows map[string]string
	err  error
}

func (s stubRepo) Set(_ context.Context, m AccountMapping) (AccountMapping, error) {
	if m.AccountCode == "9999" {
		return AccountMapping{}, &shared.UnknownAccountError{Code: m.AccountCode}
	}
	s.rows[m.Module+"/"+m.Key] = m.AccountCode
	return m, nil
}

func (s stubRepo) Get(_ context.Context, module, key string) (AccountMapping, error) {
	if s.err != nil {
		return AccountMapping{}, s.err
	}
	code, ok := s.rows[module+"/"+key]
	if !ok {
		return AccountMapping{}, shared.ErrMappingNotFound
	}
	return AccountMapping{Module: module, Key: key, AccountCode: code}, nil
}

func TestAccountCodePrefersStoredMapping(t *testing.T) {
	svc := NewService(stubRepo{rows: map[string]string{"SALES/" + KeySalesRevenue: "4100"}}, DefaultRetailMappings)
	ctx := context.Background()

	code, err := svc.AccountCode(ctx, " sales ", KeySalesRevenue)
	require.NoError(t, err)
	require.Equal(t, "4100", code)

	code, err = svc.AccountCode(ctx, ModuleSales, KeySalesVAT)
	require.NoError(t, err)
	require.Equal(t, "2200", code)
}

func TestAccountCodeMissingEverywhere(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.AccountCode(context.Background(), ModuleAssets, KeyDepreciationExpense)
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
	require.ErrorContains(t, err, "ASSETS/depreciation.expense")
}

func TestAccountCodeSurfacesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(stubRepo{err: boom}, DefaultRetailMappings)
	_, err := svc.AccountCode(context.Background(), ModuleSales, KeySalesCash)
	require.ErrorIs(t, err, boom)
}

func TestSetOverridesDefault(t *testing.T) {
	repo := stubRepo{rows: map[string]string{}}
	svc := NewService(repo, DefaultRetailMappings)
	ctx := context.Background()

	mapping, err := svc.Set(ctx, "sales", " "+KeySalesRevenue, " 4100 ")
	require.NoError(t, err)
	require.Equal(t, AccountMapping{Module: ModuleSales, Key: KeySalesRevenue, AccountCode: "4100"}, mapping)

	code, err := svc.AccountCode(ctx, ModuleSales, KeySalesRevenue)
	require.NoError(t, err)
	require.Equal(t, "4100", code)
}

func TestSetRejectsUnknownKeysAndAccounts(t *testing.T) {
	svc := NewService(stubRepo{rows: map[string]string{}}, DefaultRetailMappings)
	ctx := context.Background()

	_, err := svc.Set(ctx, ModuleSales, "sales.tips", "4000")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Set(ctx, ModuleSales, KeySalesCash, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Set(ctx, ModuleSales, KeySalesCash, "9999")
	require.ErrorIs(t, err, shared.ErrUnknownAccount)
}
