package periods

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

type stubReader struct {
	period FiscalPeriod
	err    error
}

func (s stubReader) FindPeriodForPosting(context.Context, time.Time) (FiscalPeriod, error) {
	return s.period, s.err
}

func TestGuardAssertPostable(t *testing.T) {
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	tests := []struct {
		name    string
		reader  stubReader
		wantID  *int64
		wantErr error
	}{
		{
			name:   "no period allows posting",
			reader: stubReader{err: shared.ErrPeriodNotFound},
		},
		{
			name:   "open period",
			reader: stubReader{period: FiscalPeriod{ID: 7}},
			wantID: ptr(int64(7)),
		},
		{
			name:    "locked period",
			reader:  stubReader{period: FiscalPeriod{ID: 7, IsLocked: true}},
			wantErr: shared.ErrPeriodLocked,
		},
		{
			name:    "closed wins over locked",
			reader:  stubReader{period: FiscalPeriod{ID: 7, IsLocked: true, IsClosed: true}},
			wantErr: shared.ErrPeriodClosed,
		},
		{
			name:    "repository failure",
			reader:  stubReader{err: boom},
			wantErr: boom,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := Guard{}.AssertPostable(context.Background(), tc.reader, date)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Nil(t, id)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, id)
		})
	}
}

func TestPeriodErrorsCarryID(t *testing.T) {
	_, err := Guard{}.AssertPostable(context.Background(), stubReader{period: FiscalPeriod{ID: 12, IsLocked: true}}, time.Now())
	var locked *shared.PeriodLockedError
	require.ErrorAs(t, err, &locked)
	require.EqualValues(t, 12, locked.PeriodID)
	require.NotErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestFiscalPeriodStatusAndContains(t *testing.T) {
	p := FiscalPeriod{
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	require.Equal(t, PeriodStatusOpen, p.Status())
	require.True(t, p.Contains(time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)))
	require.False(t, p.Contains(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))

	p.IsLocked = true
	require.Equal(t, PeriodStatusLocked, p.Status())
	p.IsClosed = true
	require.Equal(t, PeriodStatusClosed, p.Status())
}

func ptr[T any](v T) *T { return &v }
