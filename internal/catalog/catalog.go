// ABOUTME: Catalog view-model holding the fetched product set and its display projection
// ABOUTME: Sort and search each rebuild the view from the authoritative set, last applied wins

package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/markalston/catalog-browser/internal/apperr"
)

// MsgFetchFailed is shown when a fetch failure carries no reason of its own.
const MsgFetchFailed = "Failed to fetch products"

// ErrSuperseded is returned by Fetch when a newer fetch or a Reset started while it was
// in flight. Its result is discarded.
var ErrSuperseded = errors.New("catalog: fetch superseded")

// Source retrieves the product list using an access credential.
type Source interface {
	ListProducts(ctx context.Context, credential string) ([]Product, error)
}

// Transform names the projection currently applied to the view.
type Transform int

const (
	TransformNone Transform = iota
	TransformSort
	TransformSearch
)

// String returns the string representation of a Transform
func (t Transform) String() string {
	switch t {
	case TransformNone:
		return "none"
	case TransformSort:
		return "sort"
	case TransformSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a ViewModel's state. Source and View are copies
// and may be retained by the caller.
type Snapshot struct {
	Source     []Product
	View       []Product
	Transform  Transform
	SortField  Field
	Query      string
	Loading    bool
	FetchedAt  time.Time
	Err        error
	ErrMessage string
}

// ViewModel owns the authoritative product set and the derived view.
type ViewModel struct {
	src Source
	log *slog.Logger
	now func() time.Time

	mu         sync.RWMutex
	source     []Product
	view       []Product
	transform  Transform
	sortField  Field
	query      string
	seq        uint64
	inFlight   int
	fetchedAt  time.Time
	err        error
	errMessage string
}

// New creates an empty ViewModel reading from src.
func New(src Source, log *slog.Logger) *ViewModel {
	if log == nil {
		log = slog.Default()
	}
	return &ViewModel{
		src: src,
		log: log.With("component", "catalog"),
		now: time.Now,
	}
}

// Snapshot returns the current state.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return Snapshot{
		Source:     slices.Clone(vm.source),
		View:       slices.Clone(vm.view),
		Transform:  vm.transform,
		SortField:  vm.sortField,
		Query:      vm.query,
		Loading:    vm.inFlight > 0,
		FetchedAt:  vm.fetchedAt,
		Err:        vm.err,
		ErrMessage: vm.errMessage,
	}
}

// Source returns a copy of the authoritative product set.
func (vm *ViewModel) Source() []Product {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.source)
}

// View returns a copy of the current projection.
func (vm *ViewModel) View() []Product {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.view)
}

// Fetch retrieves the catalog with credential. On success the fetched list replaces
// the authoritative set and the view is reset to it, discarding any sort or search.
// On failure both sequences are left untouched.
func (vm *ViewModel) Fetch(ctx context.Context, credential string) error {
	if credential == "" {
		err := apperr.PreconditionFailed("Not authenticated")
		vm.mu.Lock()
		vm.setErrLocked(err)
		vm.mu.Unlock()
		vm.log.Warn("Fetch rejected", "kind", apperr.KindOf(err))
		return err
	}

	vm.mu.Lock()
	vm.seq++
	seq := vm.seq
	vm.inFlight++
	vm.mu.Unlock()

	vm.log.Debug("Fetching products", "seq", seq)
	products, err := vm.src.ListProducts(ctx, credential)
	if err == nil {
		err = checkUniqueIDs(products)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.inFlight--
	if vm.seq != seq {
		vm.log.Info("Fetch result discarded", "seq", seq, "current", vm.seq)
		return ErrSuperseded
	}

	if err != nil {
		vm.setErrLocked(err)
		vm.log.Warn("Fetch failed", "kind", apperr.KindOf(err), "error", err)
		return err
	}

	vm.source = slices.Clone(products)
	vm.view = slices.Clone(products)
	vm.transform = TransformNone
	vm.sortField = FieldID
	vm.query = ""
	vm.fetchedAt = vm.now()
	vm.clearErrLocked()
	vm.log.Info("Products fetched", "count", len(products))
	return nil
}

// SortBy replaces the view with the full authoritative set ordered ascending by the
// field named key. Ordering is a stable, case-sensitive comparison of the field text.
func (vm *ViewModel) SortBy(key string) error {
	field, ok := ParseField(key)
	if !ok {
		err := apperr.InvalidInput("Unknown sort field: " + key)
		vm.mu.Lock()
		vm.setErrLocked(err)
		vm.mu.Unlock()
		vm.log.Warn("Sort rejected", "kind", apperr.KindOf(err), "key", key)
		return err
	}
	vm.Sort(field)
	return nil
}

// Sort is SortBy for an already parsed field.
func (vm *ViewModel) Sort(field Field) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	view := slices.Clone(vm.source)
	slices.SortStableFunc(view, func(a, b Product) int {
		return strings.Compare(field.Value(a), field.Value(b))
	})
	vm.view = view
	vm.transform = TransformSort
	vm.sortField = field
	vm.query = ""
	vm.clearErrLocked()
	vm.log.Debug("Products sorted", "field", field.Key(), "count", len(view))
}

// Search replaces the view with the products of the authoritative set whose name
// contains term, ignoring case. An empty term yields the full set.
func (vm *ViewModel) Search(term string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.clearErrLocked()
	if term == "" {
		vm.view = slices.Clone(vm.source)
		vm.transform = TransformNone
		vm.query = ""
		return
	}

	needle := strings.ToLower(term)
	view := make([]Product, 0, len(vm.source))
	for _, p := range vm.source {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			view = append(view, p)
		}
	}
	vm.view = view
	vm.transform = TransformSearch
	vm.query = term
	vm.log.Debug("Products searched", "matches", len(view), "total", len(vm.source))
}

// Reset empties the view-model, discarding any fetch in flight.
func (vm *ViewModel) Reset() {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.seq++
	vm.source = nil
	vm.view = nil
	vm.transform = TransformNone
	vm.sortField = FieldID
	vm.query = ""
	vm.fetchedAt = time.Time{}
	vm.clearErrLocked()
}

func (vm *ViewModel) setErrLocked(err error) {
	vm.err = err
	vm.errMessage = apperr.UserMessage(err, MsgFetchFailed)
}

func (vm *ViewModel) clearErrLocked() {
	vm.err = nil
	vm.errMessage = ""
}

func checkUniqueIDs(products []Product) error {
	seen := make(map[ProductID]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			return apperr.MalformedResponse("Product list contains duplicate id "+string(p.ID), nil)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
