// Package phone normalizes loosely formatted telephone numbers into a canonical
// international form and a human-readable display form.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"phonenorm_backend/platform/logger"
)

const (
	// ErrEmptyPhoneNumber is reported in Result.Error for blank input.
	ErrEmptyPhoneNumber = "Empty phone number"
	// ErrNoDigits is reported in Result.Error when the input holds no digit at all.
	ErrNoDigits = "Phone number contains no digits"
)

// Result is the outcome of normalizing one number. It is never mutated after
// it is returned.
type Result struct {
	Original    string `json:"original"`
	Canonical   string `json:"canonical"`
	Display     string `json:"display"`
	CallingCode string `json:"callingCode,omitempty"`
	Region      string `json:"region,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether normalization produced a canonical number.
func (r Result) OK() bool {
	return r.Error == "" && r.Canonical != ""
}

// Normalizer owns the country table and turns raw input into Results.
// It is safe for concurrent use; Reload swaps the table atomically.
type Normalizer struct {
	loader   Loader
	log      *logger.Logger
	table    atomic.Pointer[Table]
	version  atomic.Uint64
	reloadMu sync.Mutex
}

// NewNormalizer loads the country table once. A load failure is logged and the
// normalizer starts with an empty table; it never fails construction.
func NewNormalizer(ctx context.Context, loader Loader, log *logger.Logger) *Normalizer {
	n := &Normalizer{loader: loader, log: log}

	table, err := Load(ctx, loader)
	if err != nil && log != nil {
		log.CountryTableLoadFailed(table.Source(), err)
	}
	table = n.swap(table)
	if err == nil && log != nil {
		log.CountryTableLoaded(table.Source(), table.Len(), table.Version())
	}
	return n
}

// NewNormalizerFromTable wraps an already built table. Reload is a no-op
// error because there is no loader to re-invoke.
func NewNormalizerFromTable(table *Table, log *logger.Logger) *Normalizer {
	if table == nil {
		table = EmptyTable()
	}
	n := &Normalizer{log: log}
	n.swap(table)
	return n
}

// swap publishes a versioned copy of t and returns it. t itself is never
// modified, so one table may back several normalizers.
func (n *Normalizer) swap(t *Table) *Table {
	published := t.withVersion(n.version.Add(1))
	n.table.Store(published)
	return published
}

// Table returns the snapshot currently in use.
func (n *Normalizer) Table() *Table {
	return n.table.Load()
}

// Reload re-invokes the loader. The current table stays in place when the new
// one cannot be loaded, so a bad hot update never empties a working table.
func (n *Normalizer) Reload(ctx context.Context) (*Table, error) {
	n.reloadMu.Lock()
	defer n.reloadMu.Unlock()

	if n.loader == nil {
		return n.Table(), &DataLoadError{Source: "none", Err: fmt.Errorf("normalizer has no loader")}
	}

	table, err := Load(ctx, n.loader)
	if err != nil {
		if n.log != nil {
			n.log.CountryTableLoadFailed(table.Source(), err)
		}
		return n.Table(), err
	}

	table = n.swap(table)
	if n.log != nil {
		n.log.CountryTableLoaded(table.Source(), table.Len(), table.Version())
	}
	return table, nil
}

// Normalize resolves the region label to a calling code and normalizes the
// number with it. An unknown or empty region means no calling code.
func (n *Normalizer) Normalize(rawNumber, region string) Result {
	code := ""
	if region != "" {
		code, _ = ResolveCallingCode(region)
	}
	return n.normalize(n.Table(), rawNumber, region, code)
}

// NormalizeWithCallingCode skips region resolution and uses the code as given.
func (n *Normalizer) NormalizeWithCallingCode(rawNumber, callingCode string) Result {
	if !isAllDigits(callingCode) {
		callingCode = ""
	}
	return n.normalize(n.Table(), rawNumber, "", callingCode)
}

// NormalizeBatch normalizes every number with the same region, preserving
// input order. All elements see the same table snapshot.
func (n *Normalizer) NormalizeBatch(rawNumbers []string, region string) []Result {
	table := n.Table()
	code := ""
	if region != "" {
		code, _ = ResolveCallingCode(region)
	}

	results := make([]Result, len(rawNumbers))
	for i, raw := range rawNumbers {
		results[i] = n.normalize(table, raw, region, code)
	}
	return results
}

func (n *Normalizer) normalize(table *Table, rawNumber, region, code string) (res Result) {
	res = Result{Original: rawNumber, Region: region}

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Original: rawNumber,
				Region:   region,
				Error:    fmt.Sprintf("normalization failed: %v", r),
			}
			if n.log != nil {
				n.log.NormalizationFailed(MaskPhone(rawNumber), region, res.Error)
			}
		}
	}()

	if strings.TrimSpace(rawNumber) == "" {
		res.Error = ErrEmptyPhoneNumber
		return res
	}

	res.CallingCode = code
	res.Canonical = table.ToCanonical(rawNumber, code)
	if res.Canonical == "" {
		res.Error = ErrNoDigits
		return res
	}
	res.Display = table.ToDisplay(res.Canonical, code)
	return res
}
