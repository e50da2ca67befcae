package observability

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts posting outcomes. A nil *LedgerMetrics is a no-op.
type LedgerMetrics struct {
	posted              *prometheus.CounterVec
	postedLines         prometheus.Counter
	rejected            *prometheus.CounterVec
	reversals           prometheus.Counter
	sequenceConflicts   *prometheus.CounterVec
	shortfallUnits      prometheus.Counter
	depreciationPosted  prometheus.Counter
	depreciationFailure prometheus.Counter
}

// NewLedgerMetrics registers the ledger collectors against registerer.
func NewLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		posted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_vouchers_posted_total",
			Help: "Vouchers posted by reference type.",
		}, []string{"reference_type"}),
		postedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_entries_posted_total",
			Help: "Ledger entries written.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_rejected_total",
			Help: "Rejected postings and reversals by reason.",
		}, []string{"reason"}),
		reversals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reversals_total",
			Help: "Vouchers reversed.",
		}),
		sequenceConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_sequence_conflicts_total",
			Help: "Lock wait failures while minting document numbers.",
		}, []string{"document_type"}),
		shortfallUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cogs_shortfall_units_total",
			Help: "Units sold without a cost lot, costed at weighted average.",
		}),
		depreciationPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_depreciation_posted_total",
			Help: "Asset depreciation vouchers posted.",
		}),
		depreciationFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_depreciation_failures_total",
			Help: "Assets skipped after a failed depreciation posting.",
		}),
	}
	registerer.MustRegister(m.posted, m.postedLines, m.rejected, m.reversals, m.sequenceConflicts,
		m.shortfallUnits, m.depreciationPosted, m.depreciationFailure)
	return m
}

func (m *LedgerMetrics) VoucherPosted(referenceType string, lines int) {
	if m == nil {
		return
	}
	if referenceType == "" {
		referenceType = "manual"
	}
	m.posted.WithLabelValues(referenceType).Inc()
	m.postedLines.Add(float64(lines))
}

func (m *LedgerMetrics) PostingRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *LedgerMetrics) VoucherReversed() {
	if m == nil {
		return
	}
	m.reversals.Inc()
}

func (m *LedgerMetrics) SequenceConflict(documentType string) {
	if m == nil {
		return
	}
	m.sequenceConflicts.WithLabelValues(documentType).Inc()
}

func (m *LedgerMetrics) CostingShortfall(units float64) {
	if m == nil || units <= 0 {
		return
	}
	m.shortfallUnits.Add(units)
}

func (m *LedgerMetrics) DepreciationPosted() {
	if m == nil {
		return
	}
	m.depreciationPosted.Inc()
}

func (m *LedgerMetrics) DepreciationFailed() {
	if m == nil {
		return
	}
	m.depreciationFailure.Inc()
}
