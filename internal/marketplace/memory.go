package marketplace

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sourzka.org/internal/audit"
	"sourzka.org/internal/auth"
)

// InMemory implements Store with in-process concurrency safety. It backs tests
// and local runs without DATABASE_URL.
type InMemory struct {
	mu            sync.RWMutex
	users         map[string]User
	emails        map[string]string // lower(email) -> user id
	admins        map[string]Admin
	adminEmails   map[string]string
	manufacturers map[string]Manufacturer
	buyers        map[string]Buyer
	documents     []LegalDocument
	products      map[string]Product
	auditLog      []audit.Entry
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:         make(map[string]User),
		emails:        make(map[string]string),
		admins:        make(map[string]Admin),
		adminEmails:   make(map[string]string),
		manufacturers: make(map[string]Manufacturer),
		buyers:        make(map[string]Buyer),
		products:      make(map[string]Product),
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *InMemory) CreateManufacturerAccount(ctx context.Context, user User, m Manufacturer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[emailKey(user.Email)]; taken {
		return ErrConflict
	}
	s.users[user.ID] = user
	s.emails[emailKey(user.Email)] = user.ID
	s.manufacturers[m.ID] = cloneManufacturer(m)
	return nil
}

func (s *InMemory) CreateBuyerAccount(ctx context.Context, user User, b Buyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[emailKey(user.Email)]; taken {
		return ErrConflict
	}
	s.users[user.ID] = user
	s.emails[emailKey(user.Email)] = user.ID
	s.buyers[b.ID] = b
	return nil
}

func (s *InMemory) UserByID(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemory) UserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[emailKey(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *InMemory) CreateAdmin(ctx context.Context, a Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.adminEmails[emailKey(a.Email)]; taken {
		return ErrConflict
	}
	s.admins[a.ID] = a
	s.adminEmails[emailKey(a.Email)] = a.ID
	return nil
}

func (s *InMemory) AdminByEmail(ctx context.Context, email string) (Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.adminEmails[emailKey(email)]
	if !ok {
		return Admin{}, ErrNotFound
	}
	return s.admins[id], nil
}

func (s *InMemory) AdminRole(ctx context.Context, adminID string) (auth.Role, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[adminID]
	if !ok {
		return "", false, nil
	}
	return a.Role, true, nil
}

func (s *InMemory) ManufacturerExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.manufacturers[id]
	return ok, nil
}

func (s *InMemory) BuyerExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buyers[id]
	return ok, nil
}

func (s *InMemory) ManufacturerByID(ctx context.Context, id string) (Manufacturer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manufacturers[id]
	if !ok {
		return Manufacturer{}, ErrNotFound
	}
	return cloneManufacturer(m), nil
}

func (s *InMemory) ManufacturerByUserID(ctx context.Context, userID string) (Manufacturer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.manufacturers {
		if m.UserID == userID {
			return cloneManufacturer(m), nil
		}
	}
	return Manufacturer{}, ErrNotFound
}

func (s *InMemory) UpdateManufacturer(ctx context.Context, m Manufacturer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manufacturers[m.ID]; !ok {
		return ErrNotFound
	}
	s.manufacturers[m.ID] = cloneManufacturer(m)
	return nil
}

func (s *InMemory) SetManufacturerVerification(ctx context.Context, id string, verified bool, entry audit.Entry) (Manufacturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.manufacturers[id]
	if !ok {
		return Manufacturer{}, ErrNotFound
	}
	m.IsVerified = verified
	m.IsViewedByStaff = true
	m.UpdatedAt = entry.OccurredAt
	s.manufacturers[id] = m
	s.auditLog = append(s.auditLog, entry)
	return cloneManufacturer(m), nil
}

func (s *InMemory) ListManufacturers(ctx context.Context, f ManufacturerFilter) ([]Manufacturer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]Manufacturer, 0, len(s.manufacturers))
	for _, m := range s.manufacturers {
		if f.Verified != nil && m.IsVerified != *f.Verified {
			continue
		}
		if f.IsViewedByStaff != nil && m.IsViewedByStaff != *f.IsViewedByStaff {
			continue
		}
		if search != "" && !s.matchesSearch(m, f.Search, search) {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, cj := s.users[matched[i].UserID].CreatedAt, s.users[matched[j].UserID].CreatedAt
		if ci.Equal(cj) {
			return matched[i].ID > matched[j].ID
		}
		return ci.After(cj)
	})

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < total {
		end = start + f.Limit
	}
	out := make([]Manufacturer, 0, end-start)
	for _, m := range matched[start:end] {
		out = append(out, cloneManufacturer(m))
	}
	return out, total, nil
}

func (s *InMemory) matchesSearch(m Manufacturer, raw, lowered string) bool {
	if strings.Contains(strings.ToLower(m.CompanyName), lowered) ||
		strings.Contains(strings.ToLower(m.FactoryDetails), lowered) ||
		strings.Contains(strings.ToLower(s.users[m.UserID].Email), lowered) {
		return true
	}
	for _, k := range m.Keywords {
		if k == strings.TrimSpace(raw) {
			return true
		}
	}
	return false
}

func (s *InMemory) BuyerByUserID(ctx context.Context, userID string) (Buyer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.buyers {
		if b.UserID == userID {
			return b, nil
		}
	}
	return Buyer{}, ErrNotFound
}

func (s *InMemory) CreateLegalDocument(ctx context.Context, doc LegalDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.manufacturers[doc.ManufacturerID]; !ok {
		return ErrNotFound
	}
	s.documents = append(s.documents, doc)
	return nil
}

func (s *InMemory) LegalDocuments(ctx context.Context, manufacturerID string) ([]LegalDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LegalDocument, 0)
	for _, d := range s.documents {
		if d.ManufacturerID == manufacturerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *InMemory) CreateProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugTaken(p.ManufacturerID, p.Slug, "") {
		return ErrConflict
	}
	s.products[p.ID] = cloneProduct(p)
	return nil
}

func (s *InMemory) ProductByID(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return cloneProduct(p), nil
}

func (s *InMemory) UpdateProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	if s.slugTaken(p.ManufacturerID, p.Slug, p.ID) {
		return ErrConflict
	}
	s.products[p.ID] = cloneProduct(p)
	return nil
}

func (s *InMemory) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *InMemory) ProductsByManufacturer(ctx context.Context, manufacturerID string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0)
	for _, p := range s.products {
		if p.ManufacturerID == manufacturerID {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) slugTaken(manufacturerID, slug, exceptID string) bool {
	for _, p := range s.products {
		if p.ManufacturerID == manufacturerID && p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *InMemory) AppendAudit(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, e)
	return nil
}

func (s *InMemory) ListAudit(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, 0)
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		e := s.auditLog[i]
		if q.Resource != "" && e.Resource != q.Resource {
			continue
		}
		if q.ResourceID != "" && e.ResourceID != q.ResourceID {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneManufacturer(m Manufacturer) Manufacturer {
	m.Keywords = cloneStrings(m.Keywords)
	m.Certificates = cloneStrings(m.Certificates)
	m.Gallery = cloneStrings(m.Gallery)
	if m.GSTINVerifiedAt != nil {
		at := *m.GSTINVerifiedAt
		m.GSTINVerifiedAt = &at
	}
	return m
}

func cloneProduct(p Product) Product {
	p.Tags = cloneStrings(p.Tags)
	p.MediaURLs = cloneStrings(p.MediaURLs)
	return p
}
