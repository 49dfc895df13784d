// Package memory keeps every table of the billing service in process memory.
// It backs tests and the memory storage driver and behaves like the Postgres
// repositories, including their conflict and not-found errors.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/repository"
)

type periodKey struct {
	ShopID uuid.UUID
	Month  time.Time
}

type regionMonth struct {
	RegionID uuid.UUID
	Month    time.Time
}

type Store struct {
	mu            sync.RWMutex
	shops         map[uuid.UUID]model.Shop
	clients       map[uuid.UUID]model.Client
	deliveries    map[uuid.UUID]model.Delivery
	cancellations []model.Cancellation
	tariffs       map[uuid.UUID]model.TariffVersion
	assignments   map[uuid.UUID][]model.TariffAssignment
	periods       map[periodKey]model.BillingPeriod
	documents     map[regionMonth][]model.BillingDocument
	vatRates      []model.VatRateSetting
}

func New() *Store {
	return &Store{
		shops:       make(map[uuid.UUID]model.Shop),
		clients:     make(map[uuid.UUID]model.Client),
		deliveries:  make(map[uuid.UUID]model.Delivery),
		tariffs:     make(map[uuid.UUID]model.TariffVersion),
		assignments: make(map[uuid.UUID][]model.TariffAssignment),
		periods:     make(map[periodKey]model.BillingPeriod),
		documents:   make(map[regionMonth][]model.BillingDocument),
	}
}

// PutShop registers reference data owned by other services.
func (s *Store) PutShop(shop model.Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[shop.ID] = shop
}

func (s *Store) PutClient(client model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
}

func (s *Store) GetShop(_ context.Context, id uuid.UUID) (*model.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shop, ok := s.shops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &shop, nil
}

func (s *Store) GetClient(_ context.Context, id uuid.UUID) (*model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &client, nil
}

func (s *Store) GetDelivery(_ context.Context, id uuid.UUID) (*model.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

// frozen reports whether the shop period holding date is frozen. Callers hold
// the lock, so a freeze cannot land between this check and their write.
func (s *Store) frozen(shopID uuid.UUID, date time.Time) bool {
	p, ok := s.periods[periodKey{ShopID: shopID, Month: model.MonthOf(date)}]
	return ok && p.IsFrozen()
}

func (s *Store) CreateDelivery(_ context.Context, d model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; ok {
		return repository.ErrConflict
	}
	if s.frozen(d.ShopID, d.DeliveryDate) {
		return repository.ErrPeriodFrozen
	}
	s.deliveries[d.ID] = d
	return nil
}

func (s *Store) UpdateDelivery(_ context.Context, d model.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.deliveries[d.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.frozen(current.ShopID, current.DeliveryDate) || s.frozen(current.ShopID, d.DeliveryDate) {
		return repository.ErrPeriodFrozen
	}
	d.ShopID = current.ShopID
	d.CreatedAt = current.CreatedAt
	s.deliveries[d.ID] = d
	return nil
}

func (s *Store) CancelDelivery(_ context.Context, c model.Cancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[c.DeliveryID]
	if !ok || d.Status == model.DeliveryCancelled {
		return repository.ErrConflict
	}
	if s.frozen(d.ShopID, d.DeliveryDate) != c.PeriodFrozen {
		return repository.ErrPeriodFrozen
	}
	d.Status = model.DeliveryCancelled
	d.StatusUpdatedAt = c.CancelledAt
	d.UpdatedAt = c.CancelledAt
	s.deliveries[d.ID] = d
	s.cancellations = append(s.cancellations, c)

	if c.PeriodFrozen {
		key := periodKey{ShopID: d.ShopID, Month: model.MonthOf(d.DeliveryDate)}
		if p, ok := s.periods[key]; ok && p.StaleSince == nil {
			at := c.CancelledAt
			p.StaleSince = &at
			s.periods[key] = p
		}
	}
	return nil
}

func (s *Store) HasDeliveriesFrom(_ context.Context, shopID uuid.UUID, from time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from = model.DateOnly(from)
	for _, d := range s.deliveries {
		if d.ShopID == shopID && d.Status != model.DeliveryCancelled && !d.DeliveryDate.Before(from) {
			return true, nil
		}
	}
	return false, nil
}

// Cancellations returns the cancellation log in insertion order.
func (s *Store) Cancellations() []model.Cancellation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Cancellation(nil), s.cancellations...)
}

func (s *Store) ListDeliveriesForBilling(_ context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	month = model.MonthOf(month)
	var result []model.BillingDelivery
	for _, d := range s.deliveries {
		if d.Status == model.DeliveryCancelled || !model.MonthOf(d.DeliveryDate).Equal(month) {
			continue
		}
		shop, ok := s.shops[d.ShopID]
		if !ok || shop.RegionID != regionID {
			continue
		}
		// An unknown client leaves CityID nil and fails the aggregation.
		client := s.clients[d.ClientID]
		result = append(result, model.BillingDelivery{
			Delivery:      d,
			RegionID:      shop.RegionID,
			HQID:          shop.HQID,
			CityID:        client.CityID,
			ClientName:    client.Name,
			ClientAddress: client.Address,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DeliveryDate.Equal(result[j].DeliveryDate) {
			return result[i].DeliveryDate.Before(result[j].DeliveryDate)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) CreateTariffVersion(_ context.Context, v model.TariffVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tariffs[v.ID]; ok {
		return repository.ErrConflict
	}
	v.Rule.Tiers = append(model.Tiers(nil), v.Rule.Tiers...)
	s.tariffs[v.ID] = v
	return nil
}

func (s *Store) GetTariffVersion(_ context.Context, id uuid.UUID) (*model.TariffVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tariffs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (s *Store) ListTariffVersions(_ context.Context, regionID uuid.UUID) ([]model.TariffVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.TariffVersion, 0)
	for _, v := range s.tariffs {
		if v.RegionID == regionID {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) AssignTariff(_ context.Context, a model.TariffAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.EffectiveFrom = model.DateOnly(a.EffectiveFrom)
	list := s.assignments[a.ShopID]
	for i := range list {
		if list[i].EffectiveFrom.Equal(a.EffectiveFrom) {
			list[i] = a
			return nil
		}
	}
	list = append(list, a)
	sort.Slice(list, func(i, j int) bool {
		return list[i].EffectiveFrom.Before(list[j].EffectiveFrom)
	})
	s.assignments[a.ShopID] = list
	return nil
}

func (s *Store) TariffForShop(_ context.Context, shopID uuid.UUID, asOf time.Time) (*model.TariffVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asOf = model.DateOnly(asOf)
	list := s.assignments[shopID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].EffectiveFrom.After(asOf) {
			continue
		}
		v, ok := s.tariffs[list[i].TariffVersionID]
		if !ok {
			return nil, repository.ErrNotFound
		}
		return &v, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ReplaceBillingDocuments(_ context.Context, regionID uuid.UUID, month time.Time, docs []model.BillingDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	month = model.MonthOf(month)
	s.documents[regionMonth{RegionID: regionID, Month: month}] = append([]model.BillingDocument(nil), docs...)

	for key, p := range s.periods {
		if !key.Month.Equal(month) || p.StaleSince == nil {
			continue
		}
		if shop, ok := s.shops[key.ShopID]; ok && shop.RegionID == regionID {
			p.StaleSince = nil
			s.periods[key] = p
		}
	}
	return nil
}

func (s *Store) ListBillingDocuments(_ context.Context, regionID uuid.UUID, month time.Time, recipientType *model.RecipientType) ([]model.BillingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.BillingDocument, 0)
	for _, doc := range s.documents[regionMonth{RegionID: regionID, Month: model.MonthOf(month)}] {
		if recipientType != nil && doc.RecipientType != *recipientType {
			continue
		}
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RecipientType != result[j].RecipientType {
			return result[i].RecipientType.Rank() < result[j].RecipientType.Rank()
		}
		return result[i].RecipientID.String() < result[j].RecipientID.String()
	})
	return result, nil
}

func (s *Store) GetBillingPeriod(_ context.Context, shopID uuid.UUID, month time.Time) (model.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	month = model.MonthOf(month)
	if p, ok := s.periods[periodKey{ShopID: shopID, Month: month}]; ok {
		return p, nil
	}
	return model.BillingPeriod{ShopID: shopID, PeriodMonth: month}, nil
}

func (s *Store) ListBillingPeriods(_ context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	month = model.MonthOf(month)
	result := make([]model.BillingPeriod, 0)
	for key, p := range s.periods {
		if !key.Month.Equal(month) {
			continue
		}
		if shop, ok := s.shops[key.ShopID]; ok && shop.RegionID == regionID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ShopID.String() < result[j].ShopID.String()
	})
	return result, nil
}

func (s *Store) FreezePeriod(_ context.Context, shopID uuid.UUID, month time.Time, actor string, at time.Time) (*model.BillingPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := periodKey{ShopID: shopID, Month: model.MonthOf(month)}
	p, ok := s.periods[key]
	if ok && p.IsFrozen() {
		return nil, repository.ErrConflict
	}
	if !ok {
		p = model.BillingPeriod{ShopID: shopID, PeriodMonth: key.Month}
	}
	by := actor
	p.FrozenAt = &at
	p.FrozenBy = &by
	s.periods[key] = p
	return &p, nil
}

func (s *Store) VatRateFor(_ context.Context, month time.Time) (*model.VatRateSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	month = model.MonthOf(month)
	for i := len(s.vatRates) - 1; i >= 0; i-- {
		if !s.vatRates[i].EffectiveFrom.After(month) {
			setting := s.vatRates[i]
			return &setting, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) SetVatRate(_ context.Context, setting model.VatRateSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting.EffectiveFrom = model.MonthOf(setting.EffectiveFrom)
	for i := range s.vatRates {
		if s.vatRates[i].EffectiveFrom.Equal(setting.EffectiveFrom) {
			s.vatRates[i] = setting
			return nil
		}
	}
	s.vatRates = append(s.vatRates, setting)
	sort.Slice(s.vatRates, func(i, j int) bool {
		return s.vatRates[i].EffectiveFrom.Before(s.vatRates[j].EffectiveFrom)
	})
	return nil
}
