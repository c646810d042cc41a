package cart

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelgrove/gamecrate-backend/internal/pricing"
	"github.com/pixelgrove/gamecrate-backend/internal/products"
	"github.com/pixelgrove/gamecrate-backend/pkg/db/models"
	pkgerrors "github.com/pixelgrove/gamecrate-backend/pkg/errors"
	"github.com/pixelgrove/gamecrate-backend/pkg/redis"
	"github.com/shopspring/decimal"
)

// Store abstracts the session-scoped cart persistence.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// Line is one product/quantity pair in a session cart.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Snapshot is the stored shape of one session's cart.
type Snapshot struct {
	Lines []Line `json:"lines"`
}

// IsEmpty reports whether the snapshot holds no lines.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Lines) == 0
}

// PricedLine pairs a cart line with its resolved effective unit price.
type PricedLine struct {
	Product   models.Product  `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// View is a priced rendering of a cart at a single instant.
type View struct {
	Lines    []PricedLine    `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Service defines the session cart operations.
type Service interface {
	Add(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*Snapshot, error)
	Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*Snapshot, error)
	Snapshot(ctx context.Context, sessionID string) (*Snapshot, error)
	Price(ctx context.Context, snapshot *Snapshot, asOf time.Time) (*View, error)
	View(ctx context.Context, sessionID string) (*View, error)
	Clear(ctx context.Context, sessionID string) error
}

type service struct {
	store    Store
	products products.Repository
	promos   pricing.Repository
	ttl      time.Duration
}

// NewService wires a cart service with the provided collaborators.
func NewService(store Store, productRepo products.Repository, promoRepo pricing.Repository, ttl time.Duration) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if promoRepo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &service{store: store, products: productRepo, promos: promoRepo, ttl: ttl}, nil
}

// Add clamps the new quantity to available stock instead of rejecting. A
// line clamped to zero is dropped from the cart.
func (s *service) Add(ctx context.Context, sessionID string, productID uuid.UUID, qty int) (*Snapshot, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	existing := 0
	idx := -1
	for i, line := range snapshot.Lines {
		if line.ProductID == productID {
			existing = line.Quantity
			idx = i
			break
		}
	}

	next := existing + qty
	if next > product.Stock {
		next = product.Stock
	}

	switch {
	case next <= 0 && idx >= 0:
		snapshot.Lines = append(snapshot.Lines[:idx], snapshot.Lines[idx+1:]...)
	case next <= 0:
		// nothing to add, stock is exhausted
	case idx >= 0:
		snapshot.Lines[idx].Quantity = next
	default:
		snapshot.Lines = append(snapshot.Lines, Line{ProductID: productID, Quantity: next})
	}

	if err := s.save(ctx, sessionID, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *service) Remove(ctx context.Context, sessionID string, productID uuid.UUID) (*Snapshot, error) {
	snapshot, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := snapshot.Lines[:0]
	for _, line := range snapshot.Lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	snapshot.Lines = kept

	if err := s.save(ctx, sessionID, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *service) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	raw, err := s.store.Get(ctx, s.store.CartKey(sessionID))
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return &Snapshot{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding cart")
	}
	return &snapshot, nil
}

// Price resolves effective unit prices for every line as of the provided
// instant and sums the subtotal.
func (s *service) Price(ctx context.Context, snapshot *Snapshot, asOf time.Time) (*View, error) {
	view := &View{Lines: []PricedLine{}, Subtotal: decimal.Zero}
	if snapshot.IsEmpty() {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		ids = append(ids, line.ProductID)
	}

	items, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(items))
	categories := make([]string, 0, len(items))
	for _, item := range items {
		byID[item.ID] = item
		categories = append(categories, item.Category)
	}

	promos, err := s.promos.ActiveFor(ctx, ids, categories, asOf)
	if err != nil {
		return nil, err
	}

	for _, line := range snapshot.Lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart references unknown product").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		unit := pricing.EffectivePrice(product, promos, asOf)
		total := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		view.Lines = append(view.Lines, PricedLine{
			Product:   product,
			Quantity:  line.Quantity,
			UnitPrice: unit,
			LineTotal: total,
		})
		view.Subtotal = view.Subtotal.Add(total)
	}

	return view, nil
}

func (s *service) View(ctx context.Context, sessionID string) (*View, error) {
	snapshot, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Price(ctx, snapshot, time.Now())
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Del(ctx, s.store.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) save(ctx context.Context, sessionID string, snapshot *Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.store.Set(ctx, s.store.CartKey(sessionID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return nil
}
