package entitlements

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/skillgate/pkg/features"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{now: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore is an in-memory Store used by resolver and admin tests
type memStore struct {
	mu           sync.Mutex
	packages     map[string]*SkillPackage
	customers    map[string]*Customer
	links        []*CustomerOrganization
	entitlements map[string]*SkillEntitlement

	failWith         error
	packageLookups   int
	entitlementReads int
}

func newMemStore() *memStore {
	return &memStore{
		packages:     make(map[string]*SkillPackage),
		customers:    make(map[string]*Customer),
		entitlements: make(map[string]*SkillEntitlement),
	}
}

func (m *memStore) GetActivePackageByFeatureType(ctx context.Context, ft features.Type) (*SkillPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packageLookups++
	if m.failWith != nil {
		return nil, m.failWith
	}
	var found *SkillPackage
	for _, p := range m.packages {
		if p.FeatureType == ft && p.Active && (found == nil || p.CreatedAt.Before(found.CreatedAt)) {
			found = p
		}
	}
	return found, nil
}

func (m *memStore) GetCustomerLinkForOrganization(ctx context.Context, orgID string) (*CustomerOrganization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var candidates []*CustomerOrganization
	for _, l := range m.links {
		if l.OrganizationID == orgID {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].IsPrimary != candidates[j].IsPrimary {
			return candidates[i].IsPrimary
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

func (m *memStore) ListEntitlements(ctx context.Context, customerID, packageID string) ([]*SkillEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entitlementReads++
	var result []*SkillEntitlement
	for _, e := range m.entitlements {
		if e.CustomerID == customerID && e.SkillPackageID == packageID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memStore) GetPackage(ctx context.Context, id string) (*SkillPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	return p, nil
}

func (m *memStore) ListPackages(ctx context.Context) ([]*SkillPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*SkillPackage
	for _, p := range m.packages {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SkillID < result[j].SkillID })
	return result, nil
}

func (m *memStore) UpsertPackage(ctx context.Context, pkg *SkillPackage) (*SkillPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.packages {
		if p.SkillID == pkg.SkillID {
			p.FeatureType, p.Premium, p.Active, p.Name, p.UpdatedAt = pkg.FeatureType, pkg.Premium, pkg.Active, pkg.Name, pkg.UpdatedAt
			return p, nil
		}
	}
	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	}
	cp := *pkg
	m.packages[cp.ID] = &cp
	return &cp, nil
}

func (m *memStore) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.customers[c.ID] = c
	return c, nil
}

func (m *memStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return c, nil
}

func (m *memStore) LinkOrganization(ctx context.Context, link *CustomerOrganization) (*CustomerOrganization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.CustomerID == link.CustomerID && l.OrganizationID == link.OrganizationID {
			l.IsPrimary = link.IsPrimary
			return l, nil
		}
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	m.links = append(m.links, link)
	return link, nil
}

func (m *memStore) UnlinkOrganization(ctx context.Context, customerID, orgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links {
		if l.CustomerID == customerID && l.OrganizationID == orgID {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return ErrLinkNotFound
}

func (m *memStore) GetEntitlement(ctx context.Context, id string) (*SkillEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entitlements[id]
	if !ok {
		return nil, ErrEntitlementNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) ListCustomerEntitlements(ctx context.Context, customerID string) ([]*SkillEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*SkillEntitlement
	for _, e := range m.entitlements {
		if e.CustomerID == customerID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memStore) UpsertEntitlement(ctx context.Context, e *SkillEntitlement) (*SkillEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, existing := range m.entitlements {
		if existing.CustomerID == e.CustomerID && existing.SkillPackageID == e.SkillPackageID {
			existing.LicenseType, existing.Status, existing.ExpiresAt, existing.UpdatedAt = e.LicenseType, e.Status, e.ExpiresAt, e.UpdatedAt
			cp := *existing
			return &cp, nil
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	cp := *e
	m.entitlements[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) SetEntitlementStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (*SkillEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entitlements[id]
	if !ok {
		return nil, ErrEntitlementNotFound
	}
	e.Status, e.UpdatedAt = status, updatedAt
	cp := *e
	return &cp, nil
}

func (m *memStore) DeleteEntitlement(ctx context.Context, id string) (*SkillEntitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entitlements[id]
	if !ok {
		return nil, ErrEntitlementNotFound
	}
	delete(m.entitlements, id)
	return e, nil
}

var errStoreDown = errors.New("connection refused")
